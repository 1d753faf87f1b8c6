package comic

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Magic signatures sniffed from the first bytes of a container.
var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	zipSpanMagic  = []byte("PK\x07\x08")
	rarMagic      = []byte("Rar!\x1a\x07")
	sevenZipMagic = []byte("7z\xbc\xaf\x27\x1c")
)

// sniffLen is the number of leading bytes DetectFormat needs.
const sniffLen = 8

// ParseFormat maps a file extension (with or without the leading dot,
// case-insensitive) to a Format. It returns FormatUnknown for anything else.
func ParseFormat(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "zip", "cbz":
		return FormatCBZ
	case "rar", "cbr":
		return FormatCBR
	case "7z", "cb7":
		return FormatCB7
	default:
		return FormatUnknown
	}
}

// sniffFormat identifies a container by its magic signature.
func sniffFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, zipMagic),
		bytes.HasPrefix(header, zipEmptyMagic),
		bytes.HasPrefix(header, zipSpanMagic):
		return FormatCBZ
	case bytes.HasPrefix(header, rarMagic):
		return FormatCBR
	case bytes.HasPrefix(header, sevenZipMagic):
		return FormatCB7
	default:
		return FormatUnknown
	}
}

// DetectFormat decides which adapter opens the file called name, whose first
// bytes are header.
//
// The extension decides whether the file is a comic archive at all: anything
// other than zip, cbz, rar, cbr, 7z or cb7 yields ErrUnsupportedFormat, so
// callers can fall back to other handling. For a recognised extension the
// signature wins when it identifies a different container (a RAR renamed to
// .cbz opens as RAR); otherwise the extension decides.
func DetectFormat(name string, header []byte) (Format, error) {
	byExt := ParseFormat(filepath.Ext(name))
	if byExt == FormatUnknown {
		return FormatUnknown, fmt.Errorf("comic: %s: %w", name, ErrUnsupportedFormat)
	}
	if sniffed := sniffFormat(header); sniffed != FormatUnknown {
		return sniffed, nil
	}
	return byExt, nil
}

// readAt reads up to n bytes at off, returning fewer near the end of r.
func readAt(r io.ReaderAt, size, off int64, n int) []byte {
	if want := size - off; want < int64(n) {
		n = int(max(want, 0))
	}
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	got, _ := r.ReadAt(buf, off)
	return buf[:got]
}

// newContainer dispatches r to the adapter for its format.
func newContainer(r io.ReaderAt, size int64, name string, o *options) (container, error) {
	f, err := DetectFormat(name, readAt(r, size, 0, sniffLen))
	if err != nil {
		return nil, err
	}

	switch f {
	case FormatCBZ:
		zc, err := openZip(r, size, o.policy, o.logger)
		if err != nil {
			return nil, err
		}
		return zc, nil
	case FormatCBR:
		rc, err := openRar(r, size, o)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case FormatCB7:
		sc, err := openSevenZip(r, size, o.policy, o.logger)
		if err != nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, fmt.Errorf("comic: %s: %w", name, ErrUnsupportedFormat)
	}
}
