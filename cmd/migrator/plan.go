// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keel/internal/issue"
	"keel/internal/migrator"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the migration chain without running it",
	Long: `Show the migration chain without running it.

Reads the datastore's current version, discovers migration units, and
prints the ordered chain that a run would execute for the requested
target version. Nothing is modified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan(cmd)
	},
}

func showPlan(cmd *cobra.Command) error {
	ctx := cmd.Context()
	m, err := buildMigrator(ctx)
	if err != nil {
		return err
	}

	// A missing directory is an empty chain for Run, but someone asking
	// for the plan probably expected units to be found.
	if _, statErr := os.Stat(m.MigrationDir); errors.Is(statErr, fs.ErrNotExist) {
		if rendered, renderErr := issue.Get(issue.MigrationDirNotFoundId).Render("dark"); renderErr == nil {
			fmt.Fprint(os.Stderr, rendered)
		}
	}

	plan, err := m.Plan()
	if err != nil {
		reportMigrationError(err)
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return err
	}

	fmt.Print(renderPlan(m, plan, verbose))
	return nil
}

// renderPlan formats a migration plan for display.
func renderPlan(m *migrator.Migrator, plan migrator.Plan, showPaths bool) string {
	var sb strings.Builder

	sb.WriteString(TitleStyle.Render("Migration Plan") + "\n\n")
	sb.WriteString(fmt.Sprintf("%s: %s\n", CmdStyle.Render("Datastore"), m.DataStorePath))
	sb.WriteString(fmt.Sprintf("%s: %s\n", CmdStyle.Render("Migrations"), m.MigrationDir))

	if plan.Direction == 0 {
		sb.WriteString(fmt.Sprintf("%s: %s\n\n", CmdStyle.Render("Version"), plan.SourceVersion))
		sb.WriteString(SuccessStyle.Render("✓") + " Datastore is already at the target version\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%s: %s -> %s (%s)\n\n",
		CmdStyle.Render("Versions"), plan.SourceVersion, plan.TargetVersion, plan.Direction))

	if plan.Empty() {
		sb.WriteString(SubtitleStyle.Render("No units cover this gap; a run only moves the version marker.") + "\n")
		return sb.String()
	}

	sb.WriteString(CmdStyle.Render("Units") + ":\n")
	for i, unit := range plan.Units {
		sb.WriteString(fmt.Sprintf("  %d. %s (%s)\n", i+1, unit.Name, unit.Version))
		if showPaths {
			sb.WriteString(fmt.Sprintf("     %s\n", SubtitleStyle.Render(unit.Path)))
		}
	}
	return sb.String()
}
