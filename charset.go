package comic

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"
)

// Charset is one candidate encoding tried by the encoding recovery unit.
type Charset struct {
	// Name is a human-readable label used in logs (e.g., "GBK").
	Name string

	// Encoding decodes raw entry-name bytes into UTF-8.
	Encoding encoding.Encoding
}

// RecoveryPolicy is the table that drives filename encoding recovery. The
// algorithm is fixed; the candidates and the acceptance thresholds are data
// so they can be tuned without touching it.
type RecoveryPolicy struct {
	// Charsets are tried in order; the first decode that looks like a
	// reasonable filename wins.
	Charsets []Charset

	// MaxRunes is the maximum accepted name length in runes.
	MaxRunes int

	// MaxControlRatio is the maximum share of control runes in an accepted name.
	MaxControlRatio float64

	// Garbled lists placeholder sequences that mark a decode as wrong.
	Garbled []string
}

// DefaultRecoveryPolicy returns the policy used by FixEncoding: UTF-8, GBK,
// Big5, Shift-JIS, EUC-KR, CP437, CP932 and Latin-1, in that order.
func DefaultRecoveryPolicy() *RecoveryPolicy {
	return &RecoveryPolicy{
		Charsets: []Charset{
			{Name: "UTF-8", Encoding: xunicode.UTF8},
			{Name: "GBK", Encoding: simplifiedchinese.GBK},
			{Name: "Big5", Encoding: traditionalchinese.Big5},
			{Name: "Shift_JIS", Encoding: japanese.ShiftJIS},
			{Name: "EUC-KR", Encoding: korean.EUCKR},
			{Name: "CP437", Encoding: charmap.CodePage437},
			// x/text's Shift_JIS decoder already follows the Windows-31J table.
			{Name: "CP932", Encoding: japanese.ShiftJIS},
			{Name: "ISO-8859-1", Encoding: charmap.ISO8859_1},
		},
		MaxRunes:        255,
		MaxControlRatio: 0.1,
		Garbled:         []string{"????", "\uFFFD", "□□"},
	}
}

var defaultRecoveryPolicy = DefaultRecoveryPolicy()

// FixEncoding repairs an archive entry name that was written in a legacy
// charset and is therefore not valid UTF-8, using DefaultRecoveryPolicy.
// It never fails: when no candidate produces a reasonable name the input is
// returned unchanged. Applying it twice yields the same result as once.
func FixEncoding(name string) string {
	fixed, _ := defaultRecoveryPolicy.fix(name)
	return fixed
}

// Fix applies the policy to name. See FixEncoding.
func (p *RecoveryPolicy) Fix(name string) string {
	fixed, _ := p.fix(name)
	return fixed
}

// fix returns the recovered name and the label of the charset that produced
// it, or "" when the name was accepted as-is or left untouched.
func (p *RecoveryPolicy) fix(name string) (string, string) {
	if utf8.ValidString(name) && hasNonASCII(name) {
		return name, ""
	}

	// Valid non-ASCII text has returned above, so name holds the stored bytes.
	raw := []byte(name)
	for _, cs := range p.Charsets {
		if cs.Encoding == nil {
			continue
		}
		decoded, err := cs.Encoding.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		candidate := string(decoded)
		if p.reasonable(candidate) {
			if candidate == name {
				return name, ""
			}
			return candidate, cs.Name
		}
	}
	return name, ""
}

// reasonable reports whether s looks like a usable filename.
func (p *RecoveryPolicy) reasonable(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	n := utf8.RuneCountInString(s)
	if p.MaxRunes > 0 && n > p.MaxRunes {
		return false
	}

	control := 0
	for _, r := range s {
		if unicode.IsControl(r) {
			control++
		}
	}
	if float64(control) > float64(n)*p.MaxControlRatio {
		return false
	}

	for _, g := range p.Garbled {
		if g != "" && strings.Contains(s, g) {
			return false
		}
	}
	return true
}

func hasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}
