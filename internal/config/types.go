// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// LogLevelDebug enables debug and higher log output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo enables info and higher log output.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn enables warn and higher log output.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError enables error log output only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidDataStorePath is the sentinel error wrapped by InvalidDataStorePathError.
	ErrInvalidDataStorePath = errors.New("invalid datastore path")
	// ErrInvalidMigrationDir is the sentinel error wrapped by InvalidMigrationDirError.
	ErrInvalidMigrationDir = errors.New("invalid migration directory")
	// ErrInvalidDefaultsPath is the sentinel error wrapped by InvalidDefaultsPathError.
	ErrInvalidDefaultsPath = errors.New("invalid defaults path")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// DataStorePath is the filesystem path to the live datastore directory.
	// A valid path must be non-empty and absolute.
	DataStorePath string

	// InvalidDataStorePathError is returned when a DataStorePath value is
	// empty, whitespace-only, or relative. It wraps ErrInvalidDataStorePath
	// for errors.Is() compatibility.
	InvalidDataStorePathError struct {
		Value DataStorePath
	}

	// MigrationDirPath is the filesystem path to the directory holding
	// migration unit binaries. A valid path must be non-empty and absolute.
	MigrationDirPath string

	// InvalidMigrationDirError is returned when a MigrationDirPath value is
	// empty, whitespace-only, or relative. It wraps ErrInvalidMigrationDir
	// for errors.Is() compatibility.
	InvalidMigrationDirError struct {
		Value MigrationDirPath
	}

	// DefaultsFilePath is the filesystem path to the defaults TOML file used
	// to populate a fresh datastore. A valid path must be non-empty and
	// absolute.
	DefaultsFilePath string

	// InvalidDefaultsPathError is returned when a DefaultsFilePath value is
	// empty, whitespace-only, or relative. It wraps ErrInvalidDefaultsPath
	// for errors.Is() compatibility.
	InvalidDefaultsPathError struct {
		Value DefaultsFilePath
	}

	// LogLevel controls the minimum severity the keel binaries log at.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all fields.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the shared configuration for the keel binaries.
	Config struct {
		// DataStorePath locates the live datastore directory.
		DataStorePath DataStorePath `json:"datastore_path" mapstructure:"datastore_path"`
		// MigrationDir locates the directory holding migration unit binaries.
		MigrationDir MigrationDirPath `json:"migration_dir" mapstructure:"migration_dir"`
		// DefaultsPath locates the defaults TOML file for store population.
		DefaultsPath DefaultsFilePath `json:"defaults_path" mapstructure:"defaults_path"`
		// LogLevel sets the minimum log severity.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
	}
)

// String returns the string representation of the DataStorePath.
func (p DataStorePath) String() string { return string(p) }

// IsValid returns whether the DataStorePath is valid.
// A valid path must be non-empty, not whitespace-only, and absolute.
func (p DataStorePath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" || !filepath.IsAbs(string(p)) {
		return false, []error{&InvalidDataStorePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDataStorePathError.
func (e *InvalidDataStorePathError) Error() string {
	return fmt.Sprintf("invalid datastore path %q: must be non-empty and absolute", e.Value)
}

// Unwrap returns ErrInvalidDataStorePath for errors.Is() compatibility.
func (e *InvalidDataStorePathError) Unwrap() error { return ErrInvalidDataStorePath }

// String returns the string representation of the MigrationDirPath.
func (p MigrationDirPath) String() string { return string(p) }

// IsValid returns whether the MigrationDirPath is valid.
// A valid path must be non-empty, not whitespace-only, and absolute.
func (p MigrationDirPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" || !filepath.IsAbs(string(p)) {
		return false, []error{&InvalidMigrationDirError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidMigrationDirError.
func (e *InvalidMigrationDirError) Error() string {
	return fmt.Sprintf("invalid migration directory %q: must be non-empty and absolute", e.Value)
}

// Unwrap returns ErrInvalidMigrationDir for errors.Is() compatibility.
func (e *InvalidMigrationDirError) Unwrap() error { return ErrInvalidMigrationDir }

// String returns the string representation of the DefaultsFilePath.
func (p DefaultsFilePath) String() string { return string(p) }

// IsValid returns whether the DefaultsFilePath is valid.
// A valid path must be non-empty, not whitespace-only, and absolute.
func (p DefaultsFilePath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" || !filepath.IsAbs(string(p)) {
		return false, []error{&InvalidDefaultsPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDefaultsPathError.
func (e *InvalidDefaultsPathError) Error() string {
	return fmt.Sprintf("invalid defaults path %q: must be non-empty and absolute", e.Value)
}

// Unwrap returns ErrInvalidDefaultsPath for errors.Is() compatibility.
func (e *InvalidDefaultsPathError) Unwrap() error { return ErrInvalidDefaultsPath }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// ToCharm maps the LogLevel to the corresponding charmbracelet/log level.
// Unrecognized values map to info; IsValid is the place to reject them.
func (l LogLevel) ToCharm() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error {
	return ErrInvalidLogLevel
}

// IsValid returns whether the Config has valid fields.
// It delegates to the IsValid method of every field and collects their
// validation errors into a single InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.DataStorePath.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.MigrationDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.DefaultsPath.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig plus every field error, so errors.Is()
// matches both the aggregate sentinel and the individual field sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataStorePath: "/var/lib/keel/datastore",
		MigrationDir:  "/var/lib/keel/migrations",
		DefaultsPath:  "/usr/share/keel/defaults.toml",
		LogLevel:      LogLevelInfo,
	}
}
