package comic

import (
	"io"
	"log/slog"
	"strings"
)

// container is the uniform contract every archive adapter satisfies. The
// concrete adapter is chosen once by newContainer and never changes for the
// lifetime of a Book.
type container interface {
	// format reports which adapter this is.
	format() Format

	// entries returns the immutable entry listing, in container order.
	entries() []Entry

	// open returns a fresh, independently closable stream for e.
	open(e Entry) (io.ReadCloser, error)

	// randomAccess reports whether open is cheap for any entry, as opposed
	// to walking the archive up to the entry.
	randomAccess() bool

	// close releases everything the adapter owns. It is called exactly once.
	close() error
}

// entryBuilder turns raw directory records into Entry values, applying
// encoding recovery and separator normalisation.
type entryBuilder struct {
	policy  *RecoveryPolicy
	log     *slog.Logger
	entries []Entry
	renamed int
}

func newEntryBuilder(policy *RecoveryPolicy, log *slog.Logger) *entryBuilder {
	if policy == nil {
		policy = defaultRecoveryPolicy
	}
	return &entryBuilder{policy: policy, log: log}
}

// add appends the next entry of the container listing.
func (eb *entryBuilder) add(rawName string, size, compressedSize int64, isDir, encrypted bool) {
	name, charset := eb.policy.fix(rawName)
	if charset != "" {
		eb.renamed++
		eb.log.Debug("recovered entry name", "raw", rawName, "name", name, "charset", charset)
	}
	name = normalizeName(name)
	eb.entries = append(eb.entries, Entry{
		Index:          len(eb.entries),
		RawName:        rawName,
		Name:           name,
		Size:           size,
		CompressedSize: compressedSize,
		IsDir:          isDir,
		IsImage:        !isDir && isImageName(name),
		Encrypted:      encrypted,
	})
}

// normalizeName converts Windows separators (common in RAR archives) to
// forward slashes and drops leading "./" and "/" segments.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for {
		switch {
		case strings.HasPrefix(name, "./"):
			name = name[2:]
		case strings.HasPrefix(name, "/"):
			name = name[1:]
		default:
			return name
		}
	}
}
