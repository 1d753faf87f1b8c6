package comic

import (
	"fmt"
	"path"
)

// checkEncrypted inspects the entry listing for password protection.
//
// Returns:
//   - (0, nil)            – nothing is encrypted
//   - (n, nil)            – n non-image entries are encrypted; pages stay readable
//   - (0, ErrEncrypted)   – at least one page is encrypted
func checkEncrypted(entries []Entry) (protectedExtras int, err error) {
	for _, e := range entries {
		if !e.Encrypted {
			continue
		}
		if e.IsImage {
			return 0, fmt.Errorf("comic: page %s: %w", path.Base(e.Name), ErrEncrypted)
		}
		protectedExtras++
	}
	return protectedExtras, nil
}
