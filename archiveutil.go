package comic

import (
	"fmt"
	"io"
	"path"
	"strings"
)

// defaultMaxPageSize is the maximum decompressed size accepted for a single
// entry. This guards against zip bomb attacks. Defaults to 256 MB.
const defaultMaxPageSize int64 = 256 * 1024 * 1024

// findEntryInsensitive returns the entry whose base name equals name,
// first trying an exact match, then falling back to a case-insensitive
// comparison. When several entries match, the shallowest one wins.
// Returns false if no match is found.
func findEntryInsensitive(entries []Entry, name string) (Entry, bool) {
	var (
		best      Entry
		bestDepth = -1
		exact     bool
	)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		base := path.Base(e.Name)
		isExact := base == name
		if !isExact && !strings.EqualFold(base, name) {
			continue
		}
		depth := strings.Count(e.Name, "/")
		switch {
		case bestDepth < 0,
			depth < bestDepth,
			depth == bestDepth && isExact && !exact:
			best, bestDepth, exact = e, depth, isExact
		}
	}
	return best, bestDepth >= 0
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readAllLimit reads r to the end, failing once more than limit bytes have
// been produced. The declared entry size is not trusted.
func readAllLimit(r io.Reader, name string, limit int64) ([]byte, error) {
	// Read up to limit+1 to detect if the actual decompressed data
	// exceeds the limit (the declared size might be wrong/forged).
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("comic: read entry %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("comic: entry %s decompressed size exceeds limit (%d bytes)", name, limit)
	}
	return data, nil
}

// limitedReadCloser fails reads once more than limit bytes have been
// produced by the wrapped stream.
type limitedReadCloser struct {
	rc    io.ReadCloser
	name  string
	limit int64
	n     int64
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.rc.Read(p)
	l.n += int64(n)
	if l.n > l.limit {
		return 0, fmt.Errorf("comic: entry %s decompressed size exceeds limit (%d bytes)", l.name, l.limit)
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.rc.Close()
}
