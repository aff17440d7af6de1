// SPDX-License-Identifier: MPL-2.0

package migrate

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"keel/pkg/datastore"
	"keel/pkg/settings"
)

// Run is a unit binary's entire main: it parses os.Args per the unit
// contract and applies the migration. The caller only has to exit
// non-zero on error.
func Run(m Migration) error {
	return RunAll(m)
}

// RunAll is Run for a unit that bundles several migrations. Forward
// applies them in the given order; Backward applies them in reverse so
// the last forward step is the first one undone.
func RunAll(migrations ...Migration) error {
	args, err := ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	return Apply(args, migrations...)
}

// Apply loads each layer of the source store, runs the migrations over
// it in the requested direction, and writes the result to the target
// store. Live is migrated first, then every pending transaction, so an
// uncommitted change survives the version change in its own layer. The
// source store is never written.
func Apply(args Args, migrations ...Migration) error {
	if len(migrations) == 0 {
		return fmt.Errorf("no migrations to apply")
	}
	if args.Direction != Forward && args.Direction != Backward {
		return &UsageError{Msg: "exactly one of --forward or --backward is required"}
	}
	source, err := datastore.New(args.SourcePath)
	if err != nil {
		return fmt.Errorf("opening source datastore: %w", err)
	}
	target, err := datastore.New(args.TargetPath)
	if err != nil {
		return fmt.Errorf("opening target datastore: %w", err)
	}

	layers := []datastore.Committed{datastore.Live()}
	transactions, err := source.ListTransactions()
	if err != nil {
		return fmt.Errorf("listing pending transactions: %w", err)
	}
	slices.Sort(transactions)
	for _, tx := range transactions {
		layers = append(layers, datastore.Pending(tx))
	}

	for _, layer := range layers {
		log.Info("migrating layer", "layer", layer.String(), "direction", args.Direction)
		input, err := loadLayer(source, layer)
		if err != nil {
			return fmt.Errorf("loading %s layer: %w", layer, err)
		}
		output, err := applyDirection(input, args.Direction, migrations)
		if err != nil {
			return fmt.Errorf("migrating %s layer: %w", layer, err)
		}
		if err := storeLayer(target, layer, output); err != nil {
			return fmt.Errorf("writing %s layer: %w", layer, err)
		}
	}
	return nil
}

func applyDirection(input MigrationData, direction Direction, migrations []Migration) (MigrationData, error) {
	var err error
	switch direction {
	case Forward:
		for _, m := range migrations {
			if input, err = m.Forward(input); err != nil {
				return MigrationData{}, err
			}
		}
	case Backward:
		for i := len(migrations) - 1; i >= 0; i-- {
			if input, err = migrations[i].Backward(input); err != nil {
				return MigrationData{}, err
			}
		}
	}
	return input, nil
}

// loadLayer decodes one store layer into a snapshot. Metadata lives only
// on Live, so pending layers carry data alone.
func loadLayer(ds datastore.DataStore, layer datastore.Committed) (MigrationData, error) {
	input := NewMigrationData()

	pairs, err := datastore.GetPrefix(ds, "", layer)
	if err != nil {
		return MigrationData{}, err
	}
	for key, text := range pairs {
		var value any
		if err := settings.DecodeScalar(text, &value); err != nil {
			return MigrationData{}, fmt.Errorf("data key %q: %w", key.Name(), err)
		}
		input.Data[key.Name()] = value
	}

	if layer.IsPending() {
		return input, nil
	}
	metadata, err := datastore.GetMetadataPrefix(ds, "", "")
	if err != nil {
		return MigrationData{}, err
	}
	for dataKey, entries := range metadata {
		for metaKey, text := range entries {
			var value any
			if err := settings.DecodeScalar(text, &value); err != nil {
				return MigrationData{}, fmt.Errorf("metadata %q on %q: %w", metaKey.Name(), dataKey.Name(), err)
			}
			if input.Metadata[dataKey.Name()] == nil {
				input.Metadata[dataKey.Name()] = make(map[string]any)
			}
			input.Metadata[dataKey.Name()][metaKey.Name()] = value
		}
	}
	return input, nil
}

// storeLayer encodes a snapshot back into one layer of the target store.
// A migration that produced an invalid key fails here, before anything
// depends on the result.
func storeLayer(ds datastore.DataStore, layer datastore.Committed, output MigrationData) error {
	pairs := make(map[datastore.Key]string, len(output.Data))
	for name, value := range output.Data {
		key, err := datastore.NewKey(datastore.KindData, name)
		if err != nil {
			return fmt.Errorf("migrated data key %q: %w", name, err)
		}
		text, err := settings.EncodeScalar(value)
		if err != nil {
			return fmt.Errorf("migrated value for %q: %w", name, err)
		}
		pairs[key] = text
	}
	if err := datastore.SetKeys(ds, pairs, layer); err != nil {
		return err
	}

	if layer.IsPending() {
		return nil
	}
	dataNames := make([]string, 0, len(output.Metadata))
	for name := range output.Metadata {
		dataNames = append(dataNames, name)
	}
	slices.Sort(dataNames)
	for _, dataName := range dataNames {
		dataKey, err := datastore.NewKey(datastore.KindData, dataName)
		if err != nil {
			return fmt.Errorf("migrated metadata target %q: %w", dataName, err)
		}
		entries := output.Metadata[dataName]
		metaNames := make([]string, 0, len(entries))
		for name := range entries {
			metaNames = append(metaNames, name)
		}
		slices.Sort(metaNames)
		for _, metaName := range metaNames {
			metaKey, err := datastore.NewKey(datastore.KindMeta, metaName)
			if err != nil {
				return fmt.Errorf("migrated metadata name %q: %w", metaName, err)
			}
			text, err := settings.EncodeScalar(entries[metaName])
			if err != nil {
				return fmt.Errorf("migrated metadata value %q on %q: %w", metaName, dataName, err)
			}
			if err := ds.SetMetadata(metaKey, dataKey, text); err != nil {
				return err
			}
		}
	}
	return nil
}
