// SPDX-License-Identifier: MPL-2.0

package release

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// DefaultPath is where Linux hosts keep their os-release file.
const DefaultPath = "/etc/os-release"

// Info holds the os-release fields keel reads. Unknown fields are ignored.
type Info struct {
	// ID identifies the operating system (e.g. "debian").
	ID string

	// VersionID is the OS version (e.g. "1.2.0"). This is the value
	// storeinit stamps on a new datastore when no explicit version is given.
	VersionID string

	// PrettyName is the human-readable OS name, used only in log output.
	PrettyName string
}

// currentOnce caches the host's os-release info for the lifetime of the
// process. The file is immutable while the OS is running, making
// process-wide caching safe; a missing or unreadable file is cached as an
// error the same way.
//
// INVARIANT: Load MUST NOT panic. Unlike sync.Once (where Do treats a panic
// as "returned" and silently no-ops on subsequent calls), sync.OnceValues
// propagates the panic on every call, creating a persistent crash condition.
var currentOnce = sync.OnceValues(func() (*Info, error) {
	return Load(DefaultPath)
})

// Current returns the host's os-release info from DefaultPath.
// The result is cached after the first call.
func Current() (*Info, error) {
	return currentOnce()
}

// Load reads and parses the os-release file at path.
func Load(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open os-release file %s: %w", path, err)
	}
	defer f.Close()

	info, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse os-release file %s: %w", path, err)
	}
	return info, nil
}

// Parse decodes os-release KEY=VALUE lines from r. Comments and blank lines
// are skipped; values may be bare or quoted with single or double quotes.
// Lines without "=" are ignored rather than rejected, matching how other
// os-release consumers treat malformed lines.
func Parse(r io.Reader) (*Info, error) {
	info := &Info{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch strings.TrimSpace(key) {
		case "ID":
			info.ID = unquote(value)
		case "VERSION_ID":
			info.VersionID = unquote(value)
		case "PRETTY_NAME":
			info.PrettyName = unquote(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read os-release data: %w", err)
	}

	return info, nil
}

// unquote strips the surrounding quotes of an os-release value and resolves
// the backslash escapes allowed inside double quotes.
func unquote(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 2 {
		return v
	}

	switch v[0] {
	case '\'':
		if v[len(v)-1] == '\'' {
			return v[1 : len(v)-1]
		}
	case '"':
		if v[len(v)-1] == '"' {
			inner := v[1 : len(v)-1]
			replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, "\\`", "`", `\$`, `$`)
			return replacer.Replace(inner)
		}
	}
	return v
}
