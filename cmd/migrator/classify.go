// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"keel/internal/issue"
	"keel/internal/migrator"
	"keel/pkg/datastore"
)

// classifyMigrationError maps migration failures to issue catalog IDs and
// returns a styled message for CLI rendering. It preserves actionable error details.
func classifyMigrationError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	issueID = issue.MigrationFailedId

	switch {
	case errors.Is(err, migrator.ErrInvalidVersion):
		issueID = issue.InvalidVersionId
	case errors.Is(err, datastore.ErrCorruption):
		issueID = issue.DataStoreCorruptId
	case errors.Is(err, fs.ErrNotExist):
		issueID = issue.DataStoreNotFoundId
	case errors.Is(err, fs.ErrPermission):
		issueID = issue.PermissionDeniedId
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// reportMigrationError renders the diagnostic page for a failure class to
// stderr, followed by the error itself.
func reportMigrationError(err error) {
	issueID, styledMsg := classifyMigrationError(err, verbose)
	if rendered, renderErr := issue.Get(issueID).Render("dark"); renderErr == nil {
		fmt.Fprint(os.Stderr, rendered)
	}
	fmt.Fprintln(os.Stderr, styledMsg)
}
