package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "log_level: DEBUG\ndump: code\nprompt: \">> \"\nmax_call_depth: 200\nhistory_file: /tmp/h\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		LogLevel:     "debug",
		Dump:         "code",
		HistoryFile:  "/tmp/h",
		Prompt:       ">> ",
		MaxCallDepth: 200,
		Path:         path,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "dump: ast\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg, cmpopts.IgnoreFields(Config{}, "Dump", "Path")); diff != "" {
		t.Fatalf("defaults changed (-want +got):\n%s", diff)
	}
	if cfg.Dump != "ast" {
		t.Fatalf("dump = %q", cfg.Dump)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.MaxCallDepth != 10000 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "log_level: info\nverbose: true\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for an unknown key")
	}
	if !strings.Contains(err.Error(), "verbose") || !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the key and the file: %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		content string
		key     string
	}{
		{"log_level: loud\n", "log_level"},
		{"dump: everything\n", "dump"},
		{"max_call_depth: 0\n", "max_call_depth"},
	}
	for _, tt := range tests {
		path := writeConfig(t, tt.content)
		_, err := Load(path)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%q: expected a ValidationError, got %v", tt.content, err)
		}
		if ve.Key != tt.key || ve.Path != path {
			t.Fatalf("%q: got key %q in %q", tt.content, ve.Key, ve.Path)
		}
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(EnvVar, "")

	cfg, err := Find("")
	if err != nil {
		t.Fatalf("Find without files: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected defaults, got %q", cfg.Path)
	}

	if err := os.WriteFile(FileName, []byte("prompt: \"cwd> \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg, err = Find(""); err != nil || cfg.Prompt != "cwd> " {
		t.Fatalf("working directory file: %+v, %v", cfg, err)
	}

	env := writeConfig(t, "prompt: \"env> \"\n")
	t.Setenv(EnvVar, env)
	if cfg, err = Find(""); err != nil || cfg.Prompt != "env> " {
		t.Fatalf("environment file: %+v, %v", cfg, err)
	}

	flag := writeConfig(t, "prompt: \"flag> \"\n")
	if cfg, err = Find(flag); err != nil || cfg.Prompt != "flag> " {
		t.Fatalf("flag file: %+v, %v", cfg, err)
	}

	if _, err := Find(filepath.Join(dir, "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
