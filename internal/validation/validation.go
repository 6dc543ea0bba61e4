// Package validation checks user-supplied paths and input files before the CLI opens
// them: path sanity, output file names, and content sniffing so that a renamed ZIP or
// a truncated download fails early with a clear message.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Limits applied to user input (CWE-400).
const (
	// MaxFileSize is the maximum accepted input size (256 MB).
	MaxFileSize = 256 << 20
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
	ErrTypeMismatch     = errors.New("file type mismatch")
	ErrTooLarge         = errors.New("file too large")
)

// ValidateFilename checks the last element of an output path.
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
	// Could be mistaken for a flag by whoever opens the result next.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidatePath checks a path given on the command line.
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

// FileType is the detected kind of an input file.
type FileType string

const (
	// FileTypeDocx is a WordprocessingML package (ZIP container).
	FileTypeDocx FileType = "docx"
	// FileTypeXML is a single XML part or a flat-XML package.
	FileTypeXML FileType = "xml"
	// FileTypeXMLXZ is XML compressed with xz.
	FileTypeXMLXZ  FileType = "xml.xz"
	FileTypeSQLite FileType = "sqlite"

	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeDocx, []byte{0x50, 0x4b, 0x03, 0x04}},
	{FileTypeXMLXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// TypeFromExtension returns the file type implied by the name, or FileTypeUnknown.
func TypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xml.xz"):
		return FileTypeXMLXZ
	case strings.HasSuffix(lower, ".docx"), strings.HasSuffix(lower, ".docm"),
		strings.HasSuffix(lower, ".dotx"), strings.HasSuffix(lower, ".dotm"):
		return FileTypeDocx
	case strings.HasSuffix(lower, ".xml"):
		return FileTypeXML
	case strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"), strings.HasSuffix(lower, ".db"):
		return FileTypeSQLite
	}
	return FileTypeUnknown
}

// DetectFileType sniffs the leading bytes of an input.
func DetectFileType(head []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(head, sig.magic) {
			return sig.fileType
		}
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<")) && isLikelyText(head) {
		return FileTypeXML
	}
	return FileTypeUnknown
}

// ValidateFileType reads the start of an input and checks that its content matches
// its extension. A name without a known extension is accepted for any detected type.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	detected := DetectFileType(buf[:n])
	expected := TypeFromExtension(filename)

	switch {
	case detected == FileTypeUnknown:
		return FileTypeUnknown, fmt.Errorf("%w: %s is not a document package, XML or xz file", ErrTypeMismatch, filename)
	case expected == FileTypeUnknown, expected == detected:
		return detected, nil
	}
	return FileTypeUnknown, fmt.Errorf("%w: extension suggests %s but content is %s", ErrTypeMismatch, expected, detected)
}

// isLikelyText reports whether more than 95% of the bytes are printable ASCII or
// whitespace. Bytes of multi-byte UTF-8 sequences are neutral.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 || bytes.IndexByte(buf, 0) != -1 {
		return false
	}
	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b >= 0x20 && b <= 0x7e, b == '\t', b == '\n', b == '\r':
			printable++
		case b < 0x20:
			control++
		}
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
