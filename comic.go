package comic

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// bookIDs hands out the identities PageCache keys pages by.
var bookIDs atomic.Uint64

// Book is an opened comic archive. Use Open or NewReader to create one.
//
// Read accessors are safe for concurrent use by multiple goroutines. Close
// waits for in-flight reads, invalidates every outstanding page stream and
// releases the archive.
type Book struct {
	mu     sync.RWMutex
	closed bool

	c      container
	closer io.Closer // non-nil only when created via Open()
	id     uint64
	opts   *options

	entries     []Entry
	pages       []Entry // reading order
	cover       int     // index into pages, -1 when there are none
	metadata    Metadata
	hasMetadata bool
	warnings    []string

	streamsMu sync.Mutex
	streams   map[*pageStream]struct{}
}

// Open opens the comic archive at path. The container is chosen from the
// file extension and signature; see DetectFormat.
// The caller must call Close when done reading from the book.
func Open(path string, opts ...Option) (*Book, error) {
	if ParseFormat(filepath.Ext(path)) == FormatUnknown {
		return nil, fmt.Errorf("comic: %s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("comic: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("comic: stat %s: %w", path, err)
	}

	b, err := initBook(f, fi.Size(), filepath.Base(path), f, buildOptions(opts))
	if err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// NewReader creates a Book from an io.ReaderAt with the given size. name is
// only used for its extension and in diagnostics.
// The caller is responsible for the lifetime of r; Close only cleans
// up internal state.
func NewReader(r io.ReaderAt, size int64, name string, opts ...Option) (*Book, error) {
	return initBook(r, size, name, nil, buildOptions(opts))
}

// initBook performs common initialisation: container selection, encryption
// detection, page ordering, cover selection and ComicInfo parsing.
func initBook(r io.ReaderAt, size int64, name string, closer io.Closer, o *options) (*Book, error) {
	c, err := newContainer(r, size, name, o)
	if err != nil {
		return nil, err
	}

	b := &Book{
		c:       c,
		closer:  closer,
		id:      bookIDs.Add(1),
		opts:    o,
		entries: c.entries(),
		streams: make(map[*pageStream]struct{}),
	}

	protectedExtras, err := checkEncrypted(b.entries)
	if err != nil {
		c.close()
		return nil, err
	}
	if protectedExtras > 0 {
		b.warnings = append(b.warnings, fmt.Sprintf("%d encrypted non-image entries skipped", protectedExtras))
	}

	b.pages = orderPages(b.entries)
	b.cover = selectCover(b.pages, o.coverKeywords)
	b.loadComicInfo()

	for _, e := range b.entries {
		if e.Name != normalizeName(e.RawName) {
			b.warnings = append(b.warnings, fmt.Sprintf("entry name %q recovered as %q", e.RawName, e.Name))
		}
	}

	o.logger.Info("opened comic",
		"name", name,
		"format", c.format().String(),
		"pages", len(b.pages),
		"size", humanize.Bytes(uint64(max(size, 0))),
		"random_access", c.randomAccess(),
	)
	return b, nil
}

// orderPages filters entries down to readable images and sorts them in
// natural order. Entries with equal names keep container order.
func orderPages(entries []Entry) []Entry {
	pages := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsImage || e.IsDir || isResourceFork(e.Name) {
			continue
		}
		pages = append(pages, e)
	}
	slices.SortFunc(pages, func(a, b Entry) int {
		if c := CompareNatural(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return pages
}

// isResourceFork reports whether name is macOS metadata added by the Finder
// archiver rather than a real page.
func isResourceFork(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}

// loadComicInfo reads the optional ComicInfo.xml. Problems are recorded as
// warnings; a broken metadata file never prevents reading the pages.
func (b *Book) loadComicInfo() {
	e, ok := findEntryInsensitive(b.entries, comicInfoName)
	if !ok {
		return
	}
	if e.Encrypted {
		b.warnings = append(b.warnings, comicInfoName+" is encrypted")
		return
	}

	limit := min(maxComicInfoSize, b.opts.maxPageSize)
	rc, err := b.c.open(e)
	if err != nil {
		b.warnings = append(b.warnings, fmt.Sprintf("cannot open %s: %v", comicInfoName, err))
		return
	}
	data, err := readAllLimit(rc, e.Name, limit)
	rc.Close()
	if err != nil {
		b.warnings = append(b.warnings, fmt.Sprintf("cannot read %s: %v", comicInfoName, err))
		return
	}

	ci, err := parseComicInfo(data)
	if err != nil {
		b.warnings = append(b.warnings, err.Error())
		return
	}
	b.metadata = extractMetadata(ci)
	b.hasMetadata = true

	if n := b.metadata.PageCount; n > 0 && n != len(b.pages) {
		b.warnings = append(b.warnings,
			fmt.Sprintf("%s declares %d pages, archive has %d", comicInfoName, n, len(b.pages)))
	}
}

// Close releases resources held by the Book: outstanding page streams are
// invalidated, scratch data is removed and, when the Book was created via
// Open, the underlying file is closed. Close is idempotent.
func (b *Book) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.streamsMu.Lock()
	open := make([]*pageStream, 0, len(b.streams))
	for s := range b.streams {
		open = append(open, s)
	}
	clear(b.streams)
	b.streamsMu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.c.close(); err != nil {
		errs = append(errs, err)
	}
	if b.closer != nil {
		if err := b.closer.Close(); err != nil {
			errs = append(errs, err)
		}
		b.closer = nil
	}
	if b.opts.cache != nil {
		b.opts.cache.forget(b.id)
	}
	return errors.Join(errs...)
}

// PageCount returns the number of pages in reading order.
func (b *Book) PageCount() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	return len(b.pages), nil
}

// Pages returns handles to every page in reading order.
func (b *Book) Pages() ([]Page, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	out := make([]Page, len(b.pages))
	for i, e := range b.pages {
		out[i] = Page{
			Index:     i,
			Name:      e.Name,
			RawName:   e.RawName,
			Size:      e.Size,
			MediaType: mediaTypeOf(e.Name),
			book:      b,
		}
	}
	return out, nil
}

// Entries returns the full container listing, including directories and
// non-image files, in container order.
func (b *Book) Entries() ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return append([]Entry(nil), b.entries...), nil
}

// PageName returns the recovered entry name of page i.
func (b *Book) PageName(i int) (string, error) {
	e, err := b.page(i)
	if err != nil {
		return "", err
	}
	return e.Name, nil
}

// PageSize returns the uncompressed size of page i as declared by the
// archive, or -1 when the archive does not record it.
func (b *Book) PageSize(i int) (int64, error) {
	e, err := b.page(i)
	if err != nil {
		return 0, err
	}
	return e.Size, nil
}

func (b *Book) page(i int) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return Entry{}, ErrClosed
	}
	return b.pageLocked(i)
}

func (b *Book) pageLocked(i int) (Entry, error) {
	if i < 0 || i >= len(b.pages) {
		return Entry{}, fmt.Errorf("comic: page %d of %d: %w", i, len(b.pages), ErrPageOutOfRange)
	}
	return b.pages[i], nil
}

// PageStream returns a fresh stream over the bytes of page i. Each call
// yields an independent stream that the caller must close. Reading more
// than the configured maximum page size fails with ErrPageUnavailable, and
// reading after the Book is closed fails with ErrClosed.
func (b *Book) PageStream(i int) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	e, err := b.pageLocked(i)
	if err != nil {
		return nil, err
	}

	rc, err := b.c.open(e)
	if err != nil {
		return nil, err
	}
	s := &pageStream{
		book: b,
		name: e.Name,
		rc:   &limitedReadCloser{rc: rc, name: e.Name, limit: b.opts.maxPageSize},
	}

	b.streamsMu.Lock()
	b.streams[s] = struct{}{}
	b.streamsMu.Unlock()
	return s, nil
}

// PageBytes reads page i fully into memory. When a PageCache is configured
// the bytes are shared with other readers and must not be modified.
func (b *Book) PageBytes(i int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	e, err := b.pageLocked(i)
	if err != nil {
		return nil, err
	}

	if c := b.opts.cache; c != nil {
		return c.load(pageKey{book: b.id, index: i}, func() ([]byte, error) {
			return b.readEntry(e)
		})
	}
	return b.readEntry(e)
}

// readEntry reads e fully, bounded by the maximum page size. The caller
// holds the read lock.
func (b *Book) readEntry(e Entry) ([]byte, error) {
	rc, err := b.c.open(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readAllLimit(rc, e.Name, b.opts.maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnavailable, err)
	}
	return data, nil
}

// Cover returns the cover image. Names containing a cover keyword win;
// otherwise the first page is used. ErrNoCover is returned when the archive
// has no pages.
func (b *Book) Cover() (CoverImage, error) {
	b.mu.RLock()
	idx := b.cover
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return CoverImage{}, ErrClosed
	}
	if idx < 0 {
		return CoverImage{}, ErrNoCover
	}

	data, err := b.PageBytes(idx)
	if err != nil {
		return CoverImage{}, fmt.Errorf("comic: read cover: %w", err)
	}
	name := b.pages[idx].Name
	return CoverImage{
		Index:     idx,
		Name:      name,
		MediaType: mediaTypeOf(name),
		Data:      data,
	}, nil
}

// CoverIndex returns the reading-order index of the cover, or -1 when the
// archive has no pages.
func (b *Book) CoverIndex() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return -1, ErrClosed
	}
	return b.cover, nil
}

// Summary computes the values stored when a book is imported into a
// library: page count, container format and cover bytes. A book without
// pages yields a Summary with a zero PageCount and no cover.
func (b *Book) Summary() (Summary, error) {
	n, err := b.PageCount()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{PageCount: n, Format: b.c.format()}

	cov, err := b.Cover()
	switch {
	case errors.Is(err, ErrNoCover):
		return s, nil
	case err != nil:
		return Summary{}, err
	}
	s.CoverName = cov.Name
	s.CoverMediaType = cov.MediaType
	s.Cover = cov.Data
	return s, nil
}

// Format returns the container format the Book was opened with.
func (b *Book) Format() Format {
	return b.c.format()
}

// SupportsRandomAccess reports whether any page can be opened without
// decompressing the pages before it.
func (b *Book) SupportsRandomAccess() bool {
	return b.c.randomAccess()
}

// Metadata returns the metadata from ComicInfo.xml. The boolean is false
// when the archive carries no readable ComicInfo.xml or the Book is closed.
func (b *Book) Metadata() (Metadata, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed || !b.hasMetadata {
		return Metadata{}, false
	}
	return copyMetadata(b.metadata), true
}

// Warnings returns the list of non-fatal warnings accumulated during parsing.
// It returns nil once the Book is closed.
func (b *Book) Warnings() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	return append([]string(nil), b.warnings...)
}

// pageStream is the stream handed out by PageStream. It tracks its Book so
// Close can invalidate it.
type pageStream struct {
	book *Book
	name string

	mu     sync.Mutex
	rc     io.ReadCloser
	closed bool
}

func (s *pageStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	n, err := s.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("comic: read page %s: %w: %w", s.name, ErrPageUnavailable, err)
	}
	return n, err
}

// Close closes the stream. Closing twice is harmless.
func (s *pageStream) Close() error {
	b := s.book
	b.streamsMu.Lock()
	delete(b.streams, s)
	b.streamsMu.Unlock()
	return s.shutdown()
}

func (s *pageStream) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rc.Close()
}
