// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"keel/internal/config"
	"keel/internal/issue"
)

// configCmd is the `migrator config` command tree. The same configuration
// file drives storeinit, so managing it lives here with the long-lived
// binary.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage keel configuration",
	Long: `Manage keel configuration.

Configuration is read from /etc/keel/config.cue, with KEEL_* environment
variables overriding file values and built-in defaults filling the rest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(cmd.Context(), loadOptions())
			if err != nil {
				return err
			}

			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

func showConfig(ctx context.Context) error {
	cfg, resolvedPath, err := config.Load(ctx, loadOptions())
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	if resolvedPath != "" {
		fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), resolvedPath)
	} else {
		fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", CmdStyle.Render("datastore_path"), SuccessStyle.Render(cfg.DataStorePath.String()))
	fmt.Printf("%s: %s\n", CmdStyle.Render("migration_dir"), SuccessStyle.Render(cfg.MigrationDir.String()))
	fmt.Printf("%s: %s\n", CmdStyle.Render("defaults_path"), SuccessStyle.Render(cfg.DefaultsPath.String()))
	fmt.Printf("%s: %s\n", CmdStyle.Render("log_level"), SuccessStyle.Render(cfg.LogLevel.String()))

	return nil
}

func initConfigFile() error {
	if err := config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	cfgPath := filepath.Join(config.ConfigDir(), config.ConfigFileName+"."+config.ConfigFileExt)
	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func showConfigPath() error {
	cfgDir := config.ConfigDir()

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func setConfigValue(ctx context.Context, key, value string) error {
	cfg, _, err := config.Load(ctx, loadOptions())
	if err != nil {
		return err
	}

	switch key {
	case "datastore_path":
		cfg.DataStorePath = config.DataStorePath(value)

	case "migration_dir":
		cfg.MigrationDir = config.MigrationDirPath(value)

	case "defaults_path":
		cfg.DefaultsPath = config.DefaultsFilePath(value)

	case "log_level":
		cfg.LogLevel = config.LogLevel(value)

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: datastore_path, migration_dir, defaults_path, log_level", key)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return errs[0]
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}
