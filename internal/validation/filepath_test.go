package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	v := NewPathValidator()
	if !v.AllowHomeExpansion {
		t.Error("Expected AllowHomeExpansion to be true")
	}
	if v.MaxPathLength != 4096 {
		t.Errorf("Expected MaxPathLength to be 4096, got %d", v.MaxPathLength)
	}
	if len(v.AllowedBaseDirs) == 0 {
		t.Error("Expected AllowedBaseDirs to be populated")
	}

	if p := NewPermissivePathValidator(); len(p.AllowedBaseDirs) != 0 {
		t.Error("Expected AllowedBaseDirs to be empty for permissive mode")
	}
}

func TestValidateAndSanitize(t *testing.T) {
	v := NewPermissivePathValidator()

	tests := []struct {
		name        string
		input       string
		shouldError bool
		errorMsg    string
	}{
		{name: "empty path", input: "", shouldError: true, errorMsg: "path cannot be empty"},
		{name: "path too long", input: strings.Repeat("a", 5000), shouldError: true, errorMsg: "path too long"},
		{name: "null byte injection", input: "/tmp/test\x00.db", shouldError: true, errorMsg: "null bytes"},
		{name: "control characters", input: "/tmp/test\x01.db", shouldError: true, errorMsg: "control characters"},
		{name: "traversal", input: "/tmp/../etc/passwd", shouldError: true, errorMsg: "directory traversal"},
		{name: "bad tilde", input: "~root/cache", shouldError: true, errorMsg: "tilde"},
		{name: "absolute", input: "/tmp/idgames/cache"},
		{name: "relative", input: "cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndSanitize(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !filepath.IsAbs(got) {
				t.Errorf("expected absolute path, got %q", got)
			}
		})
	}
}

func TestHomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := NewPathValidator().ValidateAndSanitize("~/.idgames/cache")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".idgames", "cache"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestValidateBaseDirs(t *testing.T) {
	base := t.TempDir()
	v := &PathValidator{AllowedBaseDirs: []string{base}, MaxPathLength: 4096}

	if _, err := v.ValidateAndSanitize(filepath.Join(base, "files.db")); err != nil {
		t.Errorf("path inside base rejected: %v", err)
	}
	if _, err := v.ValidateAndSanitize(base); err != nil {
		t.Errorf("base itself rejected: %v", err)
	}
	if _, err := v.ValidateAndSanitize(base + "-other/files.db"); err == nil {
		t.Error("sibling directory with shared prefix accepted")
	}
	if _, err := v.ValidateAndSanitize("/etc/idgames.db"); err == nil {
		t.Error("path outside base accepted")
	}
}

func TestValidateDirectory(t *testing.T) {
	v := NewPermissivePathValidator()
	dir := t.TempDir()

	missing := filepath.Join(dir, "cache")
	if _, err := v.ValidateDirectory(missing, false); err != nil {
		t.Fatalf("missing directory without create: %v", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("directory created without create flag")
	}

	got, err := v.ValidateDirectory(missing, true)
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", got)
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := v.ValidateDirectory(file, false); err == nil {
		t.Error("expected error for regular file")
	}
}

func TestValidateFile(t *testing.T) {
	v := NewPermissivePathValidator()
	dir := t.TempDir()

	if _, err := v.ValidateFile(filepath.Join(dir, "files.db")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := v.ValidateFile(dir); err == nil {
		t.Error("expected error for directory")
	}
}
