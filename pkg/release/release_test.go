// SPDX-License-Identifier: MPL-2.0

package release

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Info
	}{
		{
			name: "bare values",
			input: `ID=debian
VERSION_ID=12
`,
			want: Info{ID: "debian", VersionID: "12"},
		},
		{
			name: "double-quoted values",
			input: `ID="keel"
VERSION_ID="1.2.0"
PRETTY_NAME="Keel OS 1.2.0"
`,
			want: Info{ID: "keel", VersionID: "1.2.0", PrettyName: "Keel OS 1.2.0"},
		},
		{
			name:  "single-quoted value",
			input: `PRETTY_NAME='Keel OS'`,
			want:  Info{PrettyName: "Keel OS"},
		},
		{
			name:  "escaped quote inside double quotes",
			input: `PRETTY_NAME="Keel \"edge\" build"`,
			want:  Info{PrettyName: `Keel "edge" build`},
		},
		{
			name: "comments and blank lines skipped",
			input: `# os-release
ID=keel

# version follows
VERSION_ID=1.0.0
`,
			want: Info{ID: "keel", VersionID: "1.0.0"},
		},
		{
			name: "unknown keys ignored",
			input: `ID=keel
HOME_URL="https://example.com"
VARIANT=server
VERSION_ID=2.0.0
`,
			want: Info{ID: "keel", VersionID: "2.0.0"},
		},
		{
			name:  "line without equals ignored",
			input: "garbage line\nID=keel\n",
			want:  Info{ID: "keel"},
		},
		{
			name:  "empty input",
			input: "",
			want:  Info{},
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  VERSION_ID = \"3.1.4\"  \n",
			want:  Info{VersionID: "3.1.4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() returned error: %v", err)
			}

			if got.ID != tt.want.ID {
				t.Errorf("ID = %q, want %q", got.ID, tt.want.ID)
			}
			if got.VersionID != tt.want.VersionID {
				t.Errorf("VersionID = %q, want %q", got.VersionID, tt.want.VersionID)
			}
			if got.PrettyName != tt.want.PrettyName {
				t.Errorf("PrettyName = %q, want %q", got.PrettyName, tt.want.PrettyName)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "os-release")
		content := "ID=keel\nVERSION_ID=\"1.2.0\"\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write os-release fixture: %v", err)
		}

		info, err := Load(path)
		if err != nil {
			t.Fatalf("Load() returned error: %v", err)
		}
		if info.VersionID != "1.2.0" {
			t.Errorf("VersionID = %q, want 1.2.0", info.VersionID)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
		if err == nil {
			t.Fatal("Load() on missing file succeeded, want error")
		}
		if !strings.Contains(err.Error(), "does-not-exist") {
			t.Errorf("error should contain the path, got: %v", err)
		}
	})
}

func TestCurrentIsCached(t *testing.T) {
	// The content of /etc/os-release (or its absence) is environment
	// dependent, so only the caching contract is checked here.
	first, errFirst := Current()
	second, errSecond := Current()

	if (errFirst == nil) != (errSecond == nil) {
		t.Fatalf("Current() error changed between calls: %v vs %v", errFirst, errSecond)
	}
	if errFirst == nil && first != second {
		t.Error("Current() should return the same cached pointer")
	}
}
