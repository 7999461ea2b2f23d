package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("RUBYVM_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunInline(t *testing.T) {
	code, out, errOut := runCLI(t, "-e", "puts [1, 2, 3].sum")
	if code != 0 || out != "6\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.rb")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFname = \"world\"\nputs \"hello #{name}\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, path)
	if code != 0 || out != "hello world\n" {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

func TestRunReportsErrors(t *testing.T) {
	tests := []struct {
		src     string
		code    int
		wantErr string
	}{
		{"def f\n  raise ArgumentError, 'bad'\nend\nf", 1, "-e:2:in 'f': bad (ArgumentError)"},
		{"puts(1", 1, "(ParseError)"},
		{"x = [1, 2\ny = 3)", 1, "ParseError"},
	}
	for _, tt := range tests {
		code, _, errOut := runCLI(t, "-e", tt.src)
		if code != tt.code || !strings.Contains(errOut, tt.wantErr) {
			t.Fatalf("%q: exit %d, stderr %q", tt.src, code, errOut)
		}
	}
}

func TestDumpModes(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"tokens", "IDENT"},
		{"ast", "ast.Program"},
		{"code", "<main>"},
		{"yaml", "name: <main>"},
	}
	for _, tt := range tests {
		code, out, errOut := runCLI(t, "-dump", tt.mode, "-e", "x = 1")
		if code != 0 || !strings.Contains(out, tt.want) {
			t.Fatalf("%s: exit %d, stdout %q, stderr %q", tt.mode, code, out, errOut)
		}
	}
	if code, _, _ := runCLI(t, "-dump", "bogus", "-e", "1"); code != 2 {
		t.Fatalf("unknown dump mode should exit 2, got %d", code)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("max_call_depth: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "-config", path, "-e", "def f(n); f(n + 1); end; f(0)")
	if code != 1 || !strings.Contains(errOut, "SystemStackError") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("colour: red\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut = runCLI(t, "-config", bad, "-e", "1")
	if code != 2 || !strings.Contains(errOut, "colour") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
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
