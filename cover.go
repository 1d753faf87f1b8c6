package comic

import (
	"path"
	"strings"
)

// DefaultCoverKeywords returns the words that mark an entry as the cover when
// they appear in its base name, in several languages.
func DefaultCoverKeywords() []string {
	return []string{
		"cover", "front", "poster", "thumbnail", "thumb",
		"封面", "表紙", "表纸", "カバー", "커버", "표지",
		"portada", "couverture", "copertina",
	}
}

// IsCoverName reports whether the base name of name, without its extension,
// contains one of keywords (case-insensitive).
func IsCoverName(name string, keywords []string) bool {
	base := path.Base(name)
	stem := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	for _, kw := range keywords {
		if kw != "" && strings.Contains(stem, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// selectCover picks the cover from the ordered pages and returns its index,
// or -1 when pages is empty. Strategies are tried in priority order:
//  1. Page whose name contains a cover keyword; when several match, the one
//     with the byte-wise smallest name wins
//  2. First page of the reading order
func selectCover(pages []Entry, keywords []string) int {
	if len(pages) == 0 {
		return -1
	}

	// Strategy 1: explicit cover name.
	if i := coverFromKeywords(pages, keywords); i >= 0 {
		return i
	}

	// Strategy 2: first page.
	return 0
}

// coverFromKeywords returns the index of the keyword-matching page with the
// smallest name, or -1.
func coverFromKeywords(pages []Entry, keywords []string) int {
	best := -1
	for i, p := range pages {
		if !IsCoverName(p.Name, keywords) {
			continue
		}
		if best < 0 || p.Name < pages[best].Name {
			best = i
		}
	}
	return best
}
