// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"keel/internal/migrator"
)

var (
	// Store flags shared by run and plan. Unset path flags fall back to
	// the loaded configuration.
	dataStorePath string
	migrationDir  string
	targetVersion string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Migrate the datastore to the target version",
		Long: `Migrate the datastore to the target version.

The live store is never modified in place: each migration unit runs over
a scratch copy, and the migrated copy replaces the live directory only
after the whole chain succeeded. The pre-migration store is retired
beside the new one under a name carrying its version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd)
		},
	}
)

func init() {
	addStoreFlags(runCmd)
	addStoreFlags(planCmd)
}

// addStoreFlags registers the store location flags shared by run and plan.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataStorePath, "datastore-path", "", "live datastore directory (default from config)")
	cmd.Flags().StringVar(&migrationDir, "migration-directory", "", "directory holding migration unit executables (default from config)")
	cmd.Flags().StringVar(&targetVersion, "migrate-to-version", "", "version the datastore should end up at")
	_ = cmd.MarkFlagRequired("migrate-to-version")
}

// buildMigrator resolves flags against the configuration and returns a
// ready migrator.
func buildMigrator(ctx context.Context) (*migrator.Migrator, error) {
	cfg, err := configProvider.Load(ctx, loadOptions())
	if err != nil {
		return nil, err
	}

	m := &migrator.Migrator{
		DataStorePath: dataStorePath,
		MigrationDir:  migrationDir,
		TargetVersion: targetVersion,
	}
	if m.DataStorePath == "" {
		m.DataStorePath = cfg.DataStorePath.String()
	}
	if m.MigrationDir == "" {
		m.MigrationDir = cfg.MigrationDir.String()
	}
	return m, nil
}

func runMigration(cmd *cobra.Command) error {
	ctx := cmd.Context()
	m, err := buildMigrator(ctx)
	if err != nil {
		return err
	}

	if err := m.Run(ctx); err != nil {
		reportMigrationError(err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return err
	}

	fmt.Printf("%s Datastore at %s migrated to %s\n",
		SuccessStyle.Render("✓"), m.DataStorePath, CmdStyle.Render(m.TargetVersion))
	return nil
}
