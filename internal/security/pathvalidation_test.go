package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safeDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file inside", filepath.Join(safeDir, "jump_1.json"), false},
		{"nested file inside", filepath.Join(safeDir, "session", "jump_1.json"), false},
		{"dotdot escape", filepath.Join(safeDir, "..", "escape.json"), true},
		{"absolute outside", "/etc/passwd", true},
		{"safe dir itself", safeDir, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tc.path, safeDir)
			if tc.wantErr && err == nil {
				t.Errorf("expected error for %q", tc.path)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tc.path, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkParent(t *testing.T) {
	safeDir := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(safeDir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	// A not-yet-existing file under a symlinked directory must be rejected
	// when the link points outside the safe directory.
	if err := ValidatePathWithinDirectory(filepath.Join(link, "new.json"), safeDir); err == nil {
		t.Error("expected symlinked parent escape to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"jump", "jump"},
		{"turn left", "turn_left"},
		{"a/b\\c", "a_b_c"},
		{"../../etc", "etc"},
		{"", "unknown"},
		{"___", "unknown"},
		{"walk-2.v1", "walk-2.v1"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
