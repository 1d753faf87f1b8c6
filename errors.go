package comic

import "errors"

// Sentinel errors returned by the comic package.
var (
	// ErrUnsupportedFormat indicates the file extension (or signature) does not
	// belong to a supported comic container. It is not fatal: callers may fall
	// back to treating the file as a single image.
	ErrUnsupportedFormat = errors.New("comic: unsupported archive format")

	// ErrUnreadableContainer indicates the archive directory or header table is
	// corrupt or truncated. No Book is returned when this happens.
	ErrUnreadableContainer = errors.New("comic: unreadable container")

	// ErrEncrypted indicates the archive protects its pages with a password.
	ErrEncrypted = errors.New("comic: archive is password protected")

	// ErrPageUnavailable indicates a single page could not be decompressed.
	// The Book remains usable for other pages.
	ErrPageUnavailable = errors.New("comic: page unavailable")

	// ErrPageOutOfRange indicates a page index outside [0, PageCount).
	ErrPageOutOfRange = errors.New("comic: page index out of range")

	// ErrClosed indicates the Book (or a page stream) was used after Close.
	ErrClosed = errors.New("comic: use after close")

	// ErrNoCover indicates the archive contains no image to use as a cover.
	ErrNoCover = errors.New("comic: no cover image found")

	// ErrInvalidPage indicates a Page handle is invalid
	// (for example, a zero-value Page without an associated Book).
	ErrInvalidPage = errors.New("comic: invalid page handle")
)
