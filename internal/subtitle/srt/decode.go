package srt

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts uploaded bytes to text. A UTF-8 or UTF-16 byte order mark
// picks the encoding; BOM-less data that is not valid UTF-8 is read as
// Windows-1252, the usual encoding of legacy SRT files.
func Decode(data []byte) (string, error) {
	if hasBOM(data) {
		return decodeWithBOM(data)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode windows-1252: %w", err)
	}
	return string(out), nil
}

func decodeWithBOM(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("decode subtitle text: %w", err)
	}
	return string(out), nil
}

func hasBOM(data []byte) bool {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return true
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return true
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return true
	}
	return false
}
