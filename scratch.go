package comic

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// scratchDir is a private temporary directory holding extracted entries of
// one session. Files are named by entry index, so names stored in the
// archive never reach the filesystem.
type scratchDir struct {
	dir     string
	log     *slog.Logger
	files   map[int]string
	failed  map[int]error
	cleanup runtime.Cleanup
	removed bool
}

// newScratchDir creates a uniquely named directory under parent (the system
// temporary directory when parent is empty). If the owner is dropped without
// calling remove, the directory is deleted when it is garbage collected.
func newScratchDir(parent string, log *slog.Logger) (*scratchDir, error) {
	dir, err := os.MkdirTemp(parent, "comic-rar-*")
	if err != nil {
		return nil, fmt.Errorf("comic: create scratch directory: %w", err)
	}
	s := &scratchDir{
		dir:    dir,
		log:    log,
		files:  make(map[int]string),
		failed: make(map[int]error),
	}
	s.cleanup = runtime.AddCleanup(s, removeScratch, dir)
	log.Debug("created scratch directory", "dir", dir)
	return s, nil
}

func removeScratch(dir string) {
	_ = os.RemoveAll(dir)
}

// write stores the content of entry index read from r. A failure is recorded
// for that entry only; the partial file is discarded.
func (s *scratchDir) write(index int, name string, r io.Reader, limit int64) error {
	p := filepath.Join(s.dir, strconv.Itoa(index))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		s.failed[index] = err
		return fmt.Errorf("comic: create scratch file for %s: %w", name, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err == nil && n > limit {
		err = fmt.Errorf("comic: entry %s decompressed size exceeds limit (%d bytes)", name, limit)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		s.failed[index] = err
		return err
	}

	s.files[index] = p
	return nil
}

// open returns a fresh stream over the extracted entry.
func (s *scratchDir) open(index int, name string) (io.ReadCloser, error) {
	if err, ok := s.failed[index]; ok {
		return nil, fmt.Errorf("comic: extract %s: %w: %w", name, ErrPageUnavailable, err)
	}
	p, ok := s.files[index]
	if !ok {
		return nil, fmt.Errorf("comic: entry %s was not extracted: %w", name, ErrPageUnavailable)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("comic: open scratch file for %s: %w: %w", name, ErrPageUnavailable, err)
	}
	return f, nil
}

// remove deletes the directory and everything in it. Partially written
// contents are fine; failures are logged, never returned. It is idempotent.
func (s *scratchDir) remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.cleanup.Stop()
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Warn("failed to remove scratch directory", "dir", s.dir, "error", err)
		return
	}
	s.log.Debug("removed scratch directory", "dir", s.dir)
}
