package comic

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zip"
)

// zipFlagEncrypted is the general purpose flag bit marking an encrypted entry.
const zipFlagEncrypted = 0x1

// zipContainer serves pages straight from the ZIP central directory. Every
// entry can be opened independently, so page access is random.
type zipContainer struct {
	zr   *zip.Reader
	list []Entry
}

// openZip reads the central directory of the ZIP archive in r.
func openZip(r io.ReaderAt, size int64, policy *RecoveryPolicy, log *slog.Logger) (*zipContainer, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("comic: open zip: %w: %w", ErrUnreadableContainer, err)
	}

	eb := newEntryBuilder(policy, log)
	for _, f := range zr.File {
		eb.add(f.Name,
			int64(f.UncompressedSize64),
			int64(f.CompressedSize64),
			f.FileInfo().IsDir(),
			f.Flags&zipFlagEncrypted != 0,
		)
	}
	if eb.renamed > 0 {
		log.Info("recovered zip entry names", "count", eb.renamed)
	}

	return &zipContainer{zr: zr, list: eb.entries}, nil
}

func (z *zipContainer) format() Format { return FormatCBZ }

func (z *zipContainer) entries() []Entry { return z.list }

func (z *zipContainer) randomAccess() bool { return true }

func (z *zipContainer) open(e Entry) (io.ReadCloser, error) {
	if e.Index < 0 || e.Index >= len(z.zr.File) {
		return nil, fmt.Errorf("comic: zip entry %d: %w", e.Index, ErrPageUnavailable)
	}
	rc, err := z.zr.File[e.Index].Open()
	if err != nil {
		return nil, fmt.Errorf("comic: open zip entry %s: %w: %w", e.Name, ErrPageUnavailable, err)
	}
	return rc, nil
}

// close is a no-op: the ZIP reader holds no resources of its own and the
// underlying file is owned by the Book.
func (z *zipContainer) close() error { return nil }
