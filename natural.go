package comic

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CompareNatural compares two names in natural order, treating embedded runs of
// ASCII digits as numbers ("page2.jpg" < "page10.jpg"). Other characters are
// compared case-insensitively.
//
// Digit runs are compared by magnitude: leading zeros are skipped, a longer
// remaining run is larger, and runs of equal length are compared digit by
// digit. When one name is a prefix of the other, the shorter sorts first.
//
// Runs of equal magnitude but different spelling ("7" and "007") are decided
// only after everything else compares equal: the first such run with a
// different original length decides, shorter run first. A final byte-wise
// comparison makes the relation a total order, so CompareNatural returns 0
// only for identical strings.
func CompareNatural(a, b string) int {
	i, j := 0, 0
	zeroTie := 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			endA := digitRunEnd(a, i)
			endB := digitRunEnd(b, j)
			if c := compareDigitRuns(a[i:endA], b[j:endB]); c != 0 {
				return c
			}
			if zeroTie == 0 {
				zeroTie = cmp.Compare(endA-i, endB-j)
			}
			i, j = endA, endB
			continue
		}

		ra, sizeA := utf8.DecodeRuneInString(a[i:])
		rb, sizeB := utf8.DecodeRuneInString(b[j:])
		if c := cmp.Compare(unicode.ToLower(ra), unicode.ToLower(rb)); c != 0 {
			return c
		}
		i += sizeA
		j += sizeB
	}

	// Whatever is left over belongs to the longer name.
	if c := cmp.Compare(len(a)-i, len(b)-j); c != 0 {
		return c
	}
	if zeroTie != 0 {
		return zeroTie
	}
	return strings.Compare(a, b)
}

// SortNatural sorts names in place using CompareNatural.
func SortNatural(names []string) {
	slices.SortStableFunc(names, CompareNatural)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// digitRunEnd returns the index just past the digit run starting at start.
func digitRunEnd(s string, start int) int {
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	return end
}

// compareDigitRuns compares two all-digit strings by numeric magnitude
// without converting them, so arbitrarily long runs never overflow.
func compareDigitRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
