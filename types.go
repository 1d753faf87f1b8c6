package comic

import (
	"io"
	"path"
	"strings"
)

// Format identifies the container kind a Book was opened with.
type Format int

// Supported container formats.
const (
	FormatUnknown Format = iota
	FormatCBZ            // ZIP container (.zip, .cbz)
	FormatCBR            // RAR container (.rar, .cbr)
	FormatCB7            // 7z container (.7z, .cb7)
)

// String returns the label persisted alongside a book ("CBZ", "CBR", "CB7").
func (f Format) String() string {
	switch f {
	case FormatCBZ:
		return "CBZ"
	case FormatCBR:
		return "CBR"
	case FormatCB7:
		return "CB7"
	default:
		return "unknown"
	}
}

// Entry is one record of an archive's directory table. Entries are produced
// once when a Book is opened and never change afterwards.
type Entry struct {
	// Index is the position of the entry in the container listing. It is the
	// handle adapters use to locate the entry's content.
	Index int

	// RawName is the name exactly as stored in the archive, possibly in a
	// legacy charset.
	RawName string

	// Name is RawName after encoding recovery and separator normalisation.
	Name string

	// Size is the uncompressed size in bytes (-1 when the archive does not say).
	Size int64

	// CompressedSize is the stored size in bytes (-1 when unknown).
	CompressedSize int64

	// IsDir reports whether the entry is a directory.
	IsDir bool

	// IsImage reports whether Name carries a known image extension.
	IsImage bool

	// Encrypted reports whether the entry's content is password protected.
	Encrypted bool
}

// Page is a lightweight handle to one page of an open Book. Content is read
// lazily from the underlying archive.
type Page struct {
	// Index is the zero-based position in the reading order.
	Index int

	// Name is the recovered entry name.
	Name string

	// RawName is the entry name as stored in the archive.
	RawName string

	// Size is the uncompressed size in bytes (-1 when unknown).
	Size int64

	// MediaType is the MIME type guessed from the extension (e.g., "image/jpeg").
	MediaType string

	// book is the parent Book used for lazy content loading.
	book pageReader
}

// pageReader is a private interface for lazy content loading.
// It is implemented by Book.
type pageReader interface {
	PageStream(index int) (io.ReadCloser, error)
	PageBytes(index int) ([]byte, error)
}

// CoverImage holds the selected cover image.
type CoverImage struct {
	// Index is the cover's position in the reading order.
	Index int

	// Name is the recovered entry name of the cover.
	Name string

	// MediaType is the MIME type guessed from the extension.
	MediaType string

	// Data is the raw image bytes.
	Data []byte
}

// Summary holds the values a library database stores for an imported book,
// computed once so they need not be recomputed on every read.
type Summary struct {
	PageCount      int
	Format         Format
	CoverName      string
	CoverMediaType string
	Cover          []byte
}

// imageMediaTypes maps lower-case image extensions to MIME types.
var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".avif": "image/avif",
	".heic": "image/heic",
	".jxl":  "image/jxl",
}

// isImageName reports whether name ends in a known image extension.
func isImageName(name string) bool {
	_, ok := imageMediaTypes[strings.ToLower(path.Ext(name))]
	return ok
}

// mediaTypeOf returns the MIME type for an image name, or
// "application/octet-stream" when the extension is unknown.
func mediaTypeOf(name string) string {
	if mt, ok := imageMediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
