// Package source reads program text and normalizes it to UTF-8.
package source

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

var (
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// Decode converts src to UTF-8. A byte order mark selects UTF-8, UTF-16 or
// UTF-32 and is stripped. Text without a mark that is not valid UTF-8 is
// read as Windows-1252.
func Decode(src []byte) (string, error) {
	switch {
	case bytes.HasPrefix(src, bomUTF32LE):
		return decodeWith(src, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	case bytes.HasPrefix(src, bomUTF32BE):
		return decodeWith(src, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	}
	if !hasBOM(src) && !utf8.Valid(src) {
		return decodeWith(src, charmap.Windows1252.NewDecoder())
	}
	return decodeWith(src, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func hasBOM(src []byte) bool {
	return bytes.HasPrefix(src, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(src, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(src, []byte{0xFF, 0xFE})
}

func decodeWith(src []byte, t transform.Transformer) (string, error) {
	out, _, err := transform.Bytes(t, src)
	if err != nil {
		return "", fmt.Errorf("decode source: %w", err)
	}
	return string(out), nil
}

// ReadFile reads and decodes the file at path.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s, err := Decode(b)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
