// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"keel/internal/defaults"
	"keel/internal/issue"
	"keel/internal/migrator"
	"keel/pkg/cueutil"
	"keel/pkg/datastore"
	"keel/pkg/release"
)

func runInit(cmd *cobra.Command) error {
	cfg, err := configProvider.Load(cmd.Context(), loadOptions())
	if err != nil {
		return err
	}

	storeRoot := dataStorePath
	if storeRoot == "" {
		storeRoot = cfg.DataStorePath.String()
	}
	source := defaultsPath
	if source == "" {
		source = cfg.DefaultsPath.String()
	}

	version, err := resolveVersion(storeVersion)
	if err != nil {
		reportInitError(cmd, err)
		return err
	}

	result, err := initializeStore(storeRoot, source, version, overwrite)
	if err != nil {
		reportInitError(cmd, err)
		return err
	}

	fmt.Printf("%s Datastore ready at %s\n", SuccessStyle.Render("✓"), storeRoot)
	fmt.Printf("  settings staged: %d   metadata: %d   other: %d   skipped: %d\n",
		result.SettingsWritten, result.MetadataWritten, result.OtherWritten, result.SkippedExisting)
	return nil
}

// initializeStore creates or opens the datastore, populates it from the
// defaults source, and stamps the version on a store that has none. An
// existing store keeps its version; moving it is the migrator's job.
func initializeStore(root, source, version string, overwrite bool) (*defaults.Result, error) {
	ds, err := datastore.New(root)
	if err != nil {
		return nil, err
	}

	tree, err := defaults.Load(source)
	if err != nil {
		return nil, err
	}
	if err := defaults.Validate(tree, source); err != nil {
		return nil, err
	}

	result, err := defaults.Populate(ds, tree, defaults.Options{Overwrite: overwrite})
	if err != nil {
		return nil, err
	}
	if len(result.ClearedTransactions) > 0 {
		log.Info("cleared stale pending transactions", "count", len(result.ClearedTransactions))
	}
	log.Info("populated defaults",
		"datastore", ds.Root(),
		"settings", result.SettingsWritten,
		"metadata", result.MetadataWritten,
		"other", result.OtherWritten,
		"skipped", result.SkippedExisting)

	if _, err := datastore.ReadVersionMarker(ds.Root()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := datastore.WriteVersionMarker(ds.Root(), version); err != nil {
			return nil, err
		}
		log.Info("stamped datastore version", "version", version)
	} else {
		log.Debug("datastore already carries a version marker; leaving it")
	}

	return result, nil
}

// resolveVersion returns the version to stamp on a new store: the
// --version flag when given, otherwise VERSION_ID from /etc/os-release.
func resolveVersion(flagVersion string) (string, error) {
	raw := flagVersion
	if raw == "" {
		info, err := release.Current()
		if err != nil {
			return "", fmt.Errorf("no --version given and os-release unavailable: %w", err)
		}
		raw = info.VersionID
	}
	return migrator.NormalizeVersion(raw)
}

// classifyInitError maps initialization failures to issue catalog IDs.
// Unrecognized failures get no diagnostic page, only the error itself.
func classifyInitError(err error) (issue.Id, bool) {
	switch {
	case errors.Is(err, migrator.ErrInvalidVersion):
		return issue.InvalidVersionId, true
	case errors.Is(err, defaults.ErrInvalidDefaults),
		errors.Is(err, defaults.ErrMergeConflict):
		return issue.DefaultsParseErrorId, true
	case errors.Is(err, datastore.ErrCorruption):
		return issue.DataStoreCorruptId, true
	case errors.Is(err, fs.ErrNotExist):
		return issue.DefaultsNotFoundId, true
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId, true
	}

	// TOML syntax and CUE shape violations carry typed errors, not
	// sentinels.
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		return issue.DefaultsParseErrorId, true
	}
	var validationErr *cueutil.ValidationError
	if errors.As(err, &validationErr) {
		return issue.DefaultsParseErrorId, true
	}

	return 0, false
}

// reportInitError renders the diagnostic page for a recognized failure
// class to stderr, followed by the error itself.
func reportInitError(cmd *cobra.Command, err error) {
	if issueID, ok := classifyInitError(err); ok {
		if rendered, renderErr := issue.Get(issueID).Render("dark"); renderErr == nil {
			fmt.Fprint(os.Stderr, rendered)
		}
	}
	fmt.Fprintf(os.Stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
}
