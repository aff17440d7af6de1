// SPDX-License-Identifier: MPL-2.0

package migrator

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"keel/pkg/datastore"
	"keel/pkg/migrate"
)

// Migrator moves one datastore to a target version.
type Migrator struct {
	// DataStorePath is the live datastore directory.
	DataStorePath string
	// MigrationDir holds the migration unit executables.
	MigrationDir string
	// TargetVersion is the version the store should end up at. The
	// leading "v" is optional.
	TargetVersion string
}

// Plan reads the store's current version and computes the unit chain to
// the target version, without running anything.
func (m *Migrator) Plan() (Plan, error) {
	source, err := datastore.ReadVersionMarker(m.DataStorePath)
	if err != nil {
		return Plan{}, fmt.Errorf("reading datastore version: %w", err)
	}
	units, err := Discover(m.MigrationDir)
	if err != nil {
		return Plan{}, err
	}
	return NewPlan(units, source, m.TargetVersion)
}

// Run migrates the datastore to the target version. Each unit in the
// chain reads the previous step's output and writes a fresh scratch
// directory beside the store; the live directory is replaced only after
// the last unit succeeded and the new copy carries the target version
// marker. The pre-migration store is retired beside the new one rather
// than deleted, so a bad migration can be rolled back by hand.
func (m *Migrator) Run(ctx context.Context) error {
	plan, err := m.Plan()
	if err != nil {
		return err
	}
	if plan.Direction == 0 {
		log.Info("datastore already at target version", "version", plan.TargetVersion)
		return nil
	}
	log.Info("migrating datastore",
		"from", plan.SourceVersion,
		"to", plan.TargetVersion,
		"direction", plan.Direction,
		"units", len(plan.Units))

	liveAbs, err := filepath.Abs(m.DataStorePath)
	if err != nil {
		return fmt.Errorf("resolving datastore path: %w", err)
	}
	parent := filepath.Dir(liveAbs)
	base := filepath.Base(liveAbs)

	// Scratch directories live beside the store so the final rename
	// stays on one filesystem. All of them are removed on the way out;
	// after a successful swap the last one is already gone from its
	// scratch path, so the removal is a no-op.
	var scratch []string
	defer func() {
		for _, dir := range scratch {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn("could not remove scratch directory", "dir", dir, "error", err)
			}
		}
	}()
	newScratch := func() string {
		dir := filepath.Join(parent, fmt.Sprintf("%s_%s_%s", base, plan.TargetVersion, uuid.NewString()))
		scratch = append(scratch, dir)
		return dir
	}

	source := liveAbs
	var final string
	if plan.Empty() {
		// The version changes but no units cover the gap; stamp and
		// swap a plain copy so the marker still moves.
		final = newScratch()
		if err := copyTree(source, final); err != nil {
			return fmt.Errorf("copying datastore: %w", err)
		}
	} else {
		for _, unit := range plan.Units {
			target := newScratch()
			if err := m.runUnit(ctx, unit, plan.Direction, source, target); err != nil {
				return err
			}
			source = target
		}
		final = source
	}

	if err := datastore.WriteVersionMarker(final, plan.TargetVersion); err != nil {
		return err
	}

	retired := filepath.Join(parent, fmt.Sprintf("%s_retired_%s_%s", base, plan.SourceVersion, uuid.NewString()))
	if err := swapStores(liveAbs, final, retired); err != nil {
		return err
	}
	log.Info("datastore migrated", "version", plan.TargetVersion, "retired", retired)
	return nil
}

// runUnit executes one migration unit over a source/target store pair.
func (m *Migrator) runUnit(ctx context.Context, unit Unit, direction migrate.Direction, source, target string) error {
	log.Info("running migration unit", "unit", unit.Name, "version", unit.Version, "direction", direction)
	cmd := exec.CommandContext(ctx, unit.Path,
		"--source-datastore", source,
		"--target-datastore", target,
		"--"+direction.String(),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &UnitError{Unit: unit, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return &UnitError{Unit: unit, Err: err, Stderr: stderr.String()}
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		log.Debug("unit stdout", "unit", unit.Name, "output", out)
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		log.Debug("unit stderr", "unit", unit.Name, "output", out)
	}
	return nil
}

// copyTree copies a datastore directory, permissions included. Anything
// other than directories and regular files fails the copy: a datastore
// holds nothing else.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("refusing to copy irregular file %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

// swapStores retires the live store and moves the migrated copy into its
// place. Both renames stay within one parent directory, which is synced
// afterwards so the swap is durable before the migrator reports success.
func swapStores(livePath, migratedPath, retiredPath string) error {
	if err := os.Rename(livePath, retiredPath); err != nil {
		return fmt.Errorf("retiring live datastore: %w", err)
	}
	if err := os.Rename(migratedPath, livePath); err != nil {
		// Put the original back; the host must not be left without a store.
		if restoreErr := os.Rename(retiredPath, livePath); restoreErr != nil {
			return fmt.Errorf("activating migrated datastore: %w (restoring original also failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("activating migrated datastore: %w", err)
	}
	return syncDir(filepath.Dir(livePath))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening %s for sync: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", dir, err)
	}
	return nil
}
