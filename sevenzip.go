package comic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bodgit/sevenzip"
)

// sevenZipContainer adapts a 7z archive. Entries in the same solid block are
// decompressed from the start of the block, which the library hides behind
// File.Open.
type sevenZipContainer struct {
	zr   *sevenzip.Reader
	list []Entry
}

func openSevenZip(r io.ReaderAt, size int64, policy *RecoveryPolicy, log *slog.Logger) (*sevenZipContainer, error) {
	zr, err := sevenzip.NewReader(r, size)
	if err != nil {
		if isSevenZipEncrypted(err) {
			return nil, fmt.Errorf("comic: open 7z: %w: %w", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("comic: open 7z: %w: %w", ErrUnreadableContainer, err)
	}

	eb := newEntryBuilder(policy, log)
	for _, f := range zr.File {
		eb.add(f.Name, int64(f.UncompressedSize), -1, f.FileInfo().IsDir(), false) //nolint:gosec // sizes fit in int64
	}
	if eb.renamed > 0 {
		log.Info("recovered 7z entry names", "count", eb.renamed)
	}

	return &sevenZipContainer{zr: zr, list: eb.entries}, nil
}

func (z *sevenZipContainer) format() Format { return FormatCB7 }

func (z *sevenZipContainer) entries() []Entry { return z.list }

func (z *sevenZipContainer) randomAccess() bool { return true }

func (z *sevenZipContainer) open(e Entry) (io.ReadCloser, error) {
	if e.Index < 0 || e.Index >= len(z.zr.File) {
		return nil, fmt.Errorf("comic: 7z entry %d: %w", e.Index, ErrPageUnavailable)
	}
	rc, err := z.zr.File[e.Index].Open()
	if err != nil {
		if isSevenZipEncrypted(err) {
			return nil, fmt.Errorf("comic: open 7z entry %s: %w: %w: %w", e.Name, ErrPageUnavailable, ErrEncrypted, err)
		}
		return nil, fmt.Errorf("comic: open 7z entry %s: %w: %w", e.Name, ErrPageUnavailable, err)
	}
	return rc, nil
}

// isSevenZipEncrypted reports whether err comes from an encrypted stream
// read without a password.
func isSevenZipEncrypted(err error) bool {
	var re *sevenzip.ReadError
	return errors.As(err, &re) && re.Encrypted
}

func (z *sevenZipContainer) close() error { return nil }
