// ABOUTME: Tests for version command
// ABOUTME: Verifies version info display and SetVersion functionality

package commands

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func restoreVersion(t *testing.T) {
	t.Helper()
	original := versionInfo
	t.Cleanup(func() { versionInfo = original })
}

func TestNewVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}
}

func TestVersionCmd_Output(t *testing.T) {
	restoreVersion(t)
	SetVersion("1.2.3", "abc123", "2026-01-31")

	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, expected := range []string{"classify 1.2.3", "Commit: abc123", "Built:  2026-01-31"} {
		if !strings.Contains(out, expected) {
			t.Errorf("Output should contain %q, got:\n%s", expected, out)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	restoreVersion(t)
	SetVersion("2.0.0", "deadbeef", "2026-06-15")

	out, _, err := execute(t, "", "version", "--format", "json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := gjson.Get(out, "version").String(); got != "2.0.0" {
		t.Errorf("version = %q, want %q", got, "2.0.0")
	}
	if got := gjson.Get(out, "commit").String(); got != "deadbeef" {
		t.Errorf("commit = %q, want %q", got, "deadbeef")
	}
}

func TestSetVersion(t *testing.T) {
	restoreVersion(t)

	testCases := []struct {
		version string
		commit  string
		date    string
	}{
		{"1.0.0", "deadbeef", "2026-01-01"},
		{"dev", "none", "unknown"},
		{"2.0.0-beta", "1234567890abcdef", "2026-06-15T10:30:00Z"},
	}

	for _, tc := range testCases {
		t.Run(tc.version, func(t *testing.T) {
			SetVersion(tc.version, tc.commit, tc.date)

			if versionInfo.Version != tc.version {
				t.Errorf("Version = %q, want %q", versionInfo.Version, tc.version)
			}
			if versionInfo.Commit != tc.commit {
				t.Errorf("Commit = %q, want %q", versionInfo.Commit, tc.commit)
			}
			if versionInfo.Date != tc.date {
				t.Errorf("Date = %q, want %q", versionInfo.Date, tc.date)
			}
		})
	}
}
