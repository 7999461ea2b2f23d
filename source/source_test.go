package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("puts 1\n"), "puts 1\n"},
		{"utf8 bom", []byte("\xEF\xBB\xBFputs 1"), "puts 1"},
		{"utf8 multibyte", []byte("p \"héllo\""), "p \"héllo\""},
		{"utf16 le", []byte{0xFF, 0xFE, 'p', 0, ' ', 0, '1', 0}, "p 1"},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'p', 0, ' ', 0, '1'}, "p 1"},
		{"utf32 le", []byte{0xFF, 0xFE, 0, 0, 'x', 0, 0, 0}, "x"},
		{"latin1 fallback", []byte("p \"caf\xE9\""), "p \"café\""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		got, err := Decode(tt.input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.rb")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFputs :ok\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "puts :ok\n" {
		t.Fatalf("got %q", got)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.rb")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
