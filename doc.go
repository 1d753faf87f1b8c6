// Package comic provides a pure-Go library for reading comic book archives
// (CBZ/ZIP, CBR/RAR and CB7/7z).
//
// It lists the image entries of an archive, orders them naturally
// ("page2" before "page10"), repairs entry names stored in legacy charsets,
// picks a cover and serves pages lazily. Pages are never decoded: callers
// receive the encoded image bytes.
//
// # Opening a comic
//
// Use [Open] to open a file by path, or [NewReader] to read from an [io.ReaderAt]:
//
//	book, err := comic.Open("volume01.cbz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Close()
//
// The container is chosen by extension (zip, cbz, rar, cbr, 7z, cb7). When
// the leading bytes identify a different container, the signature wins, so
// a RAR archive saved as .cbz still opens. Any other extension yields
// [ErrUnsupportedFormat].
//
// # Pages
//
// Pages are the image entries of the archive in natural order. Each call to
// [Book.PageStream] returns an independent stream:
//
//	n, _ := book.PageCount()
//	for i := range n {
//	    rc, err := book.PageStream(i)
//	    if err != nil {
//	        continue // the page is damaged; others may still be readable
//	    }
//	    render(rc)
//	    rc.Close()
//	}
//
// [Book.PageBytes] reads a whole page and consults a [PageCache] when one is
// configured with [WithPageCache].
//
// # RAR archives
//
// RAR archives can only be read sequentially. [RarMode] selects between
// walking the archive for each page and extracting it once into a private
// scratch directory, which is removed by [Book.Close].
//
// # Entry names
//
// Archives created on systems with a legacy code page store names in that
// charset. [FixEncoding] tries UTF-8, GBK, Big5, Shift-JIS, EUC-KR, CP437
// and Latin-1 and keeps the first decode that looks like a filename. The
// table is configurable through [RecoveryPolicy].
//
// # Cover Image
//
// [Book.Cover] prefers a page whose name contains a cover keyword
// ("cover", "front", "封面", ...) and falls back to the first page:
//
//	cover, err := book.Cover()
//	if err == nil {
//	    os.WriteFile("cover.jpg", cover.Data, 0644)
//	}
//
// # Metadata
//
// If the archive carries a ComicRack ComicInfo.xml, [Book.Metadata] returns
// its series, numbering, credits and reading direction.
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - [ErrUnsupportedFormat] – the file is not a comic archive
//   - [ErrUnreadableContainer] – the archive directory is corrupt
//   - [ErrEncrypted] – pages are password protected
//   - [ErrPageUnavailable] – a single page could not be decompressed
//   - [ErrPageOutOfRange] – a page index outside [0, PageCount)
//   - [ErrClosed] – the Book was used after Close
//   - [ErrNoCover] – the archive has no pages
//   - [ErrInvalidPage] – a Page handle is invalid
package comic
