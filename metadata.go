package comic

import (
	"strconv"
	"strings"
)

// Metadata holds the ComicRack metadata found in an archive's ComicInfo.xml.
// Fields absent from the file are left at their zero value.
type Metadata struct {
	Title       string
	Series      string
	Number      string
	Volume      int
	Count       int
	Summary     string
	Year        int
	Month       int
	Day         int
	Writers     []string
	Pencillers  []string
	Publisher   string
	Genres      []string
	LanguageISO string

	// PageCount is the page count the metadata claims, which may disagree
	// with the archive's actual content.
	PageCount int

	// Manga reports whether the book is flagged as manga.
	Manga bool

	// RightToLeft reports whether pages are meant to be read right to left.
	RightToLeft bool

	// Pages contains per-page annotations, in file order.
	Pages []PageInfo
}

// PageInfo is a per-page annotation from ComicInfo.xml.
type PageInfo struct {
	// Image is the zero-based page index the annotation refers to.
	Image int

	// Type is the page kind (e.g., "FrontCover", "Story", "Advertisement").
	Type string

	// DoublePage reports whether the page is a two-page spread.
	DoublePage bool
}

// extractMetadata converts the raw ComicInfo document into the public Metadata struct.
func extractMetadata(ci *comicInfoXML) Metadata {
	md := Metadata{
		Title:       strings.TrimSpace(ci.Title),
		Series:      strings.TrimSpace(ci.Series),
		Number:      strings.TrimSpace(ci.Number),
		Volume:      atoiOrZero(ci.Volume),
		Count:       atoiOrZero(ci.Count),
		Summary:     strings.TrimSpace(ci.Summary),
		Year:        atoiOrZero(ci.Year),
		Month:       atoiOrZero(ci.Month),
		Day:         atoiOrZero(ci.Day),
		Writers:     splitList(ci.Writer),
		Pencillers:  splitList(ci.Penciller),
		Publisher:   strings.TrimSpace(ci.Publisher),
		Genres:      splitList(ci.Genre),
		LanguageISO: strings.TrimSpace(ci.LanguageISO),
		PageCount:   atoiOrZero(ci.PageCount),
	}

	// Manga is "Yes", "No", "Unknown" or "YesAndRightToLeft".
	manga := strings.TrimSpace(ci.Manga)
	md.Manga = strings.EqualFold(manga, "Yes") || strings.EqualFold(manga, "YesAndRightToLeft")
	md.RightToLeft = strings.EqualFold(manga, "YesAndRightToLeft") ||
		strings.EqualFold(strings.TrimSpace(ci.ReadingDirection), "RightToLeft")

	for _, p := range ci.Pages {
		n, err := strconv.Atoi(strings.TrimSpace(p.Image))
		if err != nil || n < 0 {
			continue
		}
		md.Pages = append(md.Pages, PageInfo{
			Image:      n,
			Type:       strings.TrimSpace(p.Type),
			DoublePage: strings.EqualFold(strings.TrimSpace(p.DoublePage), "true"),
		})
	}
	return md
}

// splitList splits a comma-separated credit or genre list.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// atoiOrZero parses a decimal integer, returning 0 on failure.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func copyMetadata(in Metadata) Metadata {
	out := in
	out.Writers = append([]string(nil), in.Writers...)
	out.Pencillers = append([]string(nil), in.Pencillers...)
	out.Genres = append([]string(nil), in.Genres...)
	out.Pages = append([]PageInfo(nil), in.Pages...)
	return out
}
