package comic

import "io"

// Open returns a fresh stream over the page's bytes. The caller must close it.
func (p Page) Open() (io.ReadCloser, error) {
	if p.book == nil {
		return nil, ErrInvalidPage
	}
	return p.book.PageStream(p.Index)
}

// Bytes reads the whole page into memory.
func (p Page) Bytes() ([]byte, error) {
	if p.book == nil {
		return nil, ErrInvalidPage
	}
	return p.book.PageBytes(p.Index)
}
