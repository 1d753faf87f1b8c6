package comic

import (
	"errors"
	"testing"
)

// coverEntries turns names into page entries in the given order.
func coverEntries(names ...string) []Entry {
	out := make([]Entry, len(names))
	for i, n := range names {
		out[i] = Entry{Index: i, Name: n, RawName: n, IsImage: true}
	}
	return out
}

func TestSelectCover(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  int
	}{
		{"keyword wins over first page", []string{"a.jpg", "b.jpg", "cover.jpg"}, 2},
		{"first page fallback", []string{"001.jpg", "002.jpg"}, 0},
		{"empty", nil, -1},
		{"case-insensitive", []string{"p1.jpg", "FrontCover.PNG"}, 1},
		{"smallest name among matches", []string{"z/cover.jpg", "b_cover.jpg", "a/front.jpg"}, 2},
		{"keyword in directory does not count", []string{"p1.jpg", "cover/p2.jpg"}, 0},
		{"chinese keyword", []string{"001.jpg", "封面.jpg"}, 1},
		{"japanese keyword", []string{"001.jpg", "表紙.jpg"}, 1},
		{"korean keyword", []string{"001.jpg", "표지.jpg"}, 1},
		{"thumbnail", []string{"001.jpg", "thumb.jpg"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectCover(coverEntries(tt.pages...), DefaultCoverKeywords())
			if got != tt.want {
				t.Errorf("selectCover(%q) = %d, want %d", tt.pages, got, tt.want)
			}
		})
	}
}

func TestIsCoverName(t *testing.T) {
	kw := DefaultCoverKeywords()
	tests := []struct {
		name string
		want bool
	}{
		{"cover.jpg", true},
		{"vol1/Cover_01.png", true},
		{"front.webp", true},
		{"poster.jpg", true},
		{"page001.jpg", false},
		{"cover/page001.jpg", false},
		{"page.cover", false},
		{"カバー.jpg", true},
		{"portada.jpg", true},
		{"couverture.jpg", true},
	}
	for _, tt := range tests {
		if got := IsCoverName(tt.name, kw); got != tt.want {
			t.Errorf("IsCoverName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if IsCoverName("cover.jpg", nil) {
		t.Error("IsCoverName with no keywords = true, want false")
	}
	if IsCoverName("cover.jpg", []string{""}) {
		t.Error("IsCoverName with empty keyword = true, want false")
	}
}

func TestBook_Cover(t *testing.T) {
	data := buildTestZip(t, pagesOf("b.jpg", "a.jpg", "cover.jpg")...)
	book := openTestBook(t, "test.cbz", data)

	cover, err := book.Cover()
	if err != nil {
		t.Fatalf("Cover() error = %v", err)
	}
	if cover.Name != "cover.jpg" {
		t.Errorf("Cover().Name = %q, want %q", cover.Name, "cover.jpg")
	}
	if string(cover.Data) != "img:cover.jpg" {
		t.Errorf("Cover().Data = %q, want %q", cover.Data, "img:cover.jpg")
	}
	if cover.MediaType != "image/jpeg" {
		t.Errorf("Cover().MediaType = %q, want %q", cover.MediaType, "image/jpeg")
	}

	// The cover keeps its natural position in the reading order.
	if cover.Index != 2 {
		t.Errorf("Cover().Index = %d, want 2", cover.Index)
	}
	n, _ := book.PageCount()
	if n != 3 {
		t.Errorf("PageCount() = %d, want 3", n)
	}
}

func TestBook_Cover_FirstPage(t *testing.T) {
	data := buildTestZip(t, pagesOf("p10.png", "p2.png", "p1.png")...)
	book := openTestBook(t, "test.cbz", data)

	cover, err := book.Cover()
	if err != nil {
		t.Fatalf("Cover() error = %v", err)
	}
	if cover.Name != "p1.png" {
		t.Errorf("Cover().Name = %q, want %q", cover.Name, "p1.png")
	}
	if cover.MediaType != "image/png" {
		t.Errorf("Cover().MediaType = %q, want %q", cover.MediaType, "image/png")
	}
}

func TestBook_Cover_CustomKeywords(t *testing.T) {
	data := buildTestZip(t, pagesOf("001.jpg", "cover.jpg", "kansei.jpg")...)
	book := openTestBook(t, "test.cbz", data, WithCoverKeywords("kansei"))

	idx, err := book.CoverIndex()
	if err != nil {
		t.Fatalf("CoverIndex() error = %v", err)
	}
	if name, _ := book.PageName(idx); name != "kansei.jpg" {
		t.Errorf("cover = %q, want %q", name, "kansei.jpg")
	}
}

func TestBook_Cover_NoPages(t *testing.T) {
	data := buildTestZip(t, testFile{Name: "readme.txt", Body: "hello"})
	book := openTestBook(t, "test.cbz", data)

	if _, err := book.Cover(); !errors.Is(err, ErrNoCover) {
		t.Errorf("Cover() error = %v, want ErrNoCover", err)
	}
	if idx, _ := book.CoverIndex(); idx != -1 {
		t.Errorf("CoverIndex() = %d, want -1", idx)
	}
}
