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

	// configProvider loads the shared keel configuration for every
	// subcommand.
	configProvider = config.NewProvider()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "migrator",
		Short: "Migrate the keel datastore between versions",
		Long: TitleStyle.Render("migrator") + SubtitleStyle.Render(" - datastore migration orchestrator") + `

migrator moves the host's settings datastore between OS versions. It
discovers migration unit executables, selects and orders the units that
cover the version delta, runs them as subprocesses over a scratch copy
of the store, and swaps the migrated copy into place only after every
unit succeeded. The pre-migration store is retired beside the new one.

` + SubtitleStyle.Render("Examples:") + `
  migrator plan --migrate-to-version 1.2.0   Show the unit chain without running it
  migrator run --migrate-to-version 1.2.0    Migrate the datastore
  migrator config show                       Show the effective configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/keel/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initRootConfig applies the configured log level before any subcommand
// runs. Load errors are surfaced as warnings here and fail for real when
// the subcommand loads the config itself.
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
