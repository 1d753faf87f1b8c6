package comic

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nwaples/rardecode"
)

// RarMode selects how pages of a RAR archive are served.
type RarMode int

const (
	// RarAuto extracts solid archives to a scratch directory and streams
	// pages of non-solid archives. It is the default.
	RarAuto RarMode = iota

	// RarStream walks the archive's sequential API up to the requested entry
	// on every page access. Nothing is written to disk.
	RarStream

	// RarExtract extracts every entry into a private scratch directory when
	// the archive is opened and serves pages from there.
	RarExtract
)

// rarContainer adapts a RAR archive. RAR only offers sequential access, and
// in solid archives every entry depends on the ones before it.
type rarContainer struct {
	src     io.ReaderAt
	size    int64
	list    []Entry
	solid   bool
	scratch *scratchDir // nil when streaming
	log     *slog.Logger
}

// openRar scans the headers of the RAR archive in r and, depending on the
// configured RarMode, extracts its entries into a scratch directory.
func openRar(r io.ReaderAt, size int64, o *options) (*rarContainer, error) {
	c := &rarContainer{src: r, size: size, log: o.logger}
	c.solid = rarSolid(readAt(r, size, 0, rarMainHeaderLen))

	extract := o.rarMode == RarExtract || (o.rarMode == RarAuto && c.solid)
	if extract && o.rarMode == RarAuto {
		c.log.Debug("solid rar archive, extracting to scratch directory")
	}
	if err := c.scan(o, extract); err != nil {
		return nil, err
	}
	return c, nil
}

// scan walks every header once, building the entry list. When extract is
// set, each entry's content is copied into a new scratch directory on the
// way. Any failure removes the scratch directory before returning.
func (c *rarContainer) scan(o *options, extract bool) (err error) {
	rr, err := rardecode.NewReader(c.section(), "")
	if err != nil {
		return fmt.Errorf("comic: open rar: %w: %w", ErrUnreadableContainer, err)
	}

	var scratch *scratchDir
	if extract {
		scratch, err = newScratchDir(o.scratchDir, c.log)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				scratch.remove()
			}
		}()
	}

	eb := newEntryBuilder(o.policy, c.log)
	for {
		h, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("comic: read rar header: %w: %w", ErrUnreadableContainer, err)
		}

		size := h.UnPackedSize
		if h.UnKnownSize {
			size = -1
		}
		eb.add(h.Name, size, h.PackedSize, h.IsDir, false)

		if scratch != nil && !h.IsDir {
			e := eb.entries[len(eb.entries)-1]
			if werr := scratch.write(e.Index, e.Name, rr, o.maxPageSize); werr != nil {
				c.log.Warn("failed to extract rar entry", "entry", e.Name, "error", werr)
			}
		}
	}
	if eb.renamed > 0 {
		c.log.Info("recovered rar entry names", "count", eb.renamed)
	}

	c.list = eb.entries
	c.scratch = scratch
	return nil
}

// section returns a fresh reader positioned at the start of the archive.
// Readers are independent, so concurrent page streams never share state.
func (c *rarContainer) section() io.Reader {
	return io.NewSectionReader(c.src, 0, c.size)
}

func (c *rarContainer) format() Format { return FormatCBR }

func (c *rarContainer) entries() []Entry { return c.list }

func (c *rarContainer) randomAccess() bool { return c.scratch != nil }

func (c *rarContainer) open(e Entry) (io.ReadCloser, error) {
	if e.Index < 0 || e.Index >= len(c.list) {
		return nil, fmt.Errorf("comic: rar entry %d: %w", e.Index, ErrPageUnavailable)
	}
	if c.scratch != nil {
		return c.scratch.open(e.Index, e.Name)
	}

	rr, err := rardecode.NewReader(c.section(), "")
	if err != nil {
		return nil, fmt.Errorf("comic: reopen rar for %s: %w: %w", e.Name, ErrPageUnavailable, err)
	}
	for i := 0; ; i++ {
		if _, err := rr.Next(); err != nil {
			return nil, fmt.Errorf("comic: seek rar entry %s: %w: %w", e.Name, ErrPageUnavailable, err)
		}
		if i == e.Index {
			return io.NopCloser(rr), nil
		}
	}
}

func (c *rarContainer) close() error {
	if c.scratch != nil {
		c.scratch.remove()
	}
	return nil
}

// rarMainHeaderLen covers the signature and the archive header flags of
// both RAR 1.5 and RAR 5 archives.
const rarMainHeaderLen = 32

// rarSolid reports whether the archive header marks the archive as solid.
// The sequential reader does not expose this, so the flag is read from the
// main archive header directly.
func rarSolid(header []byte) bool {
	switch {
	case bytes.HasPrefix(header, []byte("Rar!\x1a\x07\x00")):
		// HEAD_CRC(2) HEAD_TYPE(1) HEAD_FLAGS(2)
		h := header[7:]
		if len(h) < 5 || h[2] != 0x73 {
			return false
		}
		return binary.LittleEndian.Uint16(h[3:5])&0x0008 != 0
	case bytes.HasPrefix(header, []byte("Rar!\x1a\x07\x01\x00")):
		// CRC32(4) then vints: size, type, flags, [extra size], [data size], archive flags
		h := header[8:]
		if len(h) < 4 {
			return false
		}
		var typ, flags uint64
		if _, h = readVint(h[4:]); h == nil {
			return false
		}
		if typ, h = readVint(h); h == nil || typ != 1 {
			return false
		}
		if flags, h = readVint(h); h == nil {
			return false
		}
		for _, bit := range []uint64{0x0001, 0x0002} {
			if flags&bit != 0 {
				if _, h = readVint(h); h == nil {
					return false
				}
			}
		}
		arcFlags, rest := readVint(h)
		return rest != nil && arcFlags&0x0004 != 0
	}
	return false
}

// readVint decodes a RAR 5 variable-length integer, returning the remaining
// bytes or nil when b is truncated.
func readVint(b []byte) (uint64, []byte) {
	var v uint64
	for i := 0; i < len(b) && i < 10; i++ {
		v |= uint64(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, b[i+1:]
		}
	}
	return 0, nil
}

