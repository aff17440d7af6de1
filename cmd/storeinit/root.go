// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"keel/internal/config"
	"keel/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose forces debug logging regardless of the configured level.
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// dataStorePath is the store to create or populate; empty falls back
	// to the configuration.
	dataStorePath string
	// defaultsPath is the defaults TOML file or fragment directory; empty
	// falls back to the configuration.
	defaultsPath string
	// storeVersion is stamped on a freshly created store. Note that
	// --version belongs to the datastore, not the tool; empty falls back
	// to VERSION_ID from /etc/os-release.
	storeVersion string
	// overwrite writes defaults over existing keys and metadata.
	overwrite bool

	// configProvider loads the shared keel configuration.
	configProvider = config.NewProvider()

	rootCmd = &cobra.Command{
		Use:   "storeinit",
		Short: "Create and populate the keel datastore",
		Long: TitleStyle.Render("storeinit") + SubtitleStyle.Render(" - datastore creation and defaults population") + `

storeinit prepares the host's settings datastore for first use. It
creates the store directory tree if needed, decodes the defaults file,
stages default settings into the shared launch transaction (committed by
the first boot-time commit cycle), writes metadata and non-settings
tables directly to the live store, and stamps the datastore version.

Re-running is safe: existing keys and metadata pairs are left alone
unless --overwrite is given, so an updated defaults file only fills in
what is new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.Flags().StringVar(&dataStorePath, "data-store-path", "", "datastore directory to create or populate (default from config)")
	rootCmd.Flags().StringVar(&defaultsPath, "defaults-path", "", "defaults TOML file or fragment directory (default from config)")
	rootCmd.Flags().StringVar(&storeVersion, "version", "", "version to stamp on a new datastore (default VERSION_ID from /etc/os-release)")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "write defaults over existing keys and metadata")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/keel/config.cue)")
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the storeinit command. fang styles help and errors; the
// tool version stays out of the flag set because --version addresses the
// datastore here.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initRootConfig applies the configured log level before the command
// runs. Load errors are surfaced as warnings here and fail for real when
// the command loads the config itself.
func initRootConfig() {
	cfg, err := configProvider.Load(context.Background(), loadOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}

	level := cfg.LogLevel.ToCharm()
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// loadOptions carries the --config flag into every config load.
func loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: cfgFile}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
