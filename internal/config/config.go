// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"keel/internal/issue"
	"keel/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "keel"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	// defaultConfigDir is where the keel binaries look for their config file.
	// keel runs as host tooling, so the directory is fixed rather than derived
	// from the invoking user's home.
	defaultConfigDir = "/etc/keel"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the keel configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() string {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride
	}
	return defaultConfigDir
}

// Load reads configuration from the requested source and returns the config
// along with the path of the file it was loaded from ("" when only defaults
// and environment variables applied).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("datastore_path", defaults.DataStorePath)
	v.SetDefault("migration_dir", defaults.MigrationDir)
	v.SetDefault("defaults_path", defaults.DefaultsPath)
	v.SetDefault("log_level", defaults.LogLevel)

	// KEEL_DATASTORE_PATH and friends override both file and defaults.
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	resolvedPath := ""

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Run 'migrator config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'migrator config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		// Try to load the CUE config file from the config directory. A system
		// without one runs entirely on defaults; that is not an error.
		cfgDir := configDirWithOverride(opts.ConfigDirPath)
		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(cuePath).
					WithSuggestion("Check that the file contains valid CUE syntax").
					WithSuggestion("Verify the configuration values match the expected schema").
					WithSuggestion("Run 'migrator config show' to see the effective configuration").
					Wrap(err).
					BuildError()
			}
			resolvedPath = cuePath
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate constraints that CUE cannot see: path absoluteness, and any
	// value that arrived through the environment rather than the file.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Use absolute paths for datastore_path, migration_dir, and defaults_path").
			WithSuggestion("Valid log levels are debug, info, warn, and error").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before the fixed default.
func configDirWithOverride(configDirPath string) string {
	if configDirPath != "" {
		return configDirPath
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The decode target is map[string]any rather than Config so the result can be
// merged into Viper's layer stack, keeping defaults and environment overrides
// in play. Concrete(false) allows config files that set only some fields.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecodeString[map[string]any](
		configSchema,
		data,
		"#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist
func CreateDefaultConfig() error {
	cfgDir := ConfigDir()

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		return nil // File exists
	}

	defaults := DefaultConfig()
	cueContent := GenerateCUE(defaults)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	cfgDir := ConfigDir()

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	cueContent := GenerateCUE(cfg)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// keel configuration file\n")
	sb.WriteString("// All fields are optional; omitted fields use built-in defaults.\n\n")

	sb.WriteString(fmt.Sprintf("datastore_path: %q\n", cfg.DataStorePath))
	sb.WriteString(fmt.Sprintf("migration_dir:  %q\n", cfg.MigrationDir))
	sb.WriteString(fmt.Sprintf("defaults_path:  %q\n", cfg.DefaultsPath))
	sb.WriteString(fmt.Sprintf("log_level:      %q\n", cfg.LogLevel))

	return sb.String()
}
