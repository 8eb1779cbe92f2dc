// Package validation checks user supplied paths, dataset files and HTTP
// query parameters before they reach the corpus loaders and handlers.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user supplied names.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrContentMismatch  = errors.New("file content does not match its extension")
)

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateFilename checks that the final element of a path is a plain file
// name: no separators, control characters or leading hyphen.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// ContentType is the kind of content found at the start of a dataset file.
type ContentType string

const (
	ContentXZ      ContentType = "xz"
	ContentSQLite  ContentType = "sqlite"
	ContentText    ContentType = "text"
	ContentUnknown ContentType = "unknown"
)

var magicBytes = []struct {
	kind  ContentType
	magic []byte
}{
	{ContentXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{ContentSQLite, []byte("SQLite format 3\x00")},
}

// ValidateDatasetContent reads the first bytes of a dataset and checks they
// match what its file name promises: xz data for ".xz", a SQLite header for
// ".db"/".sqlite"/".sqlite3" and text for JSON or XML.
func ValidateDatasetContent(r io.Reader, filename string) (ContentType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ContentUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectContent(buf)
	expected := expectedContent(filename)

	if expected == ContentUnknown || detected == expected {
		return detected, nil
	}
	return detected, fmt.Errorf("%w: %s looks like %s, expected %s", ErrContentMismatch, filepath.Base(filename), detected, expected)
}

func detectContent(buf []byte) ContentType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.kind
		}
	}
	if isLikelyText(buf) {
		return ContentText
	}
	return ContentUnknown
}

func expectedContent(filename string) ContentType {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".xz") {
		return ContentXZ
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return ContentSQLite
	case ".json", ".xml", ".osis":
		return ContentText
	}
	return ContentUnknown
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 continuation and start bytes are neutral
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
