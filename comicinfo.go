package comic

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/net/html/charset"
)

// comicInfoName is the well-known name of the ComicRack metadata file.
const comicInfoName = "ComicInfo.xml"

// maxComicInfoSize bounds the metadata file; real ones are a few KB.
const maxComicInfoSize int64 = 1 << 20

// comicInfoXML models the root <ComicInfo> element.
type comicInfoXML struct {
	XMLName          xml.Name        `xml:"ComicInfo"`
	Title            string          `xml:"Title"`
	Series           string          `xml:"Series"`
	Number           string          `xml:"Number"`
	Count            string          `xml:"Count"`
	Volume           string          `xml:"Volume"`
	Summary          string          `xml:"Summary"`
	Year             string          `xml:"Year"`
	Month            string          `xml:"Month"`
	Day              string          `xml:"Day"`
	Writer           string          `xml:"Writer"`
	Penciller        string          `xml:"Penciller"`
	Publisher        string          `xml:"Publisher"`
	Genre            string          `xml:"Genre"`
	LanguageISO      string          `xml:"LanguageISO"`
	PageCount        string          `xml:"PageCount"`
	Manga            string          `xml:"Manga"`
	ReadingDirection string          `xml:"ReadingDirection"`
	Pages            []comicInfoPage `xml:"Pages>Page"`
}

// comicInfoPage represents a single <Page> element inside <Pages>.
type comicInfoPage struct {
	Image       string `xml:"Image,attr"`
	Type        string `xml:"Type,attr"`
	DoublePage  string `xml:"DoublePage,attr"`
	ImageWidth  string `xml:"ImageWidth,attr"`
	ImageHeight string `xml:"ImageHeight,attr"`
}

// parseComicInfo decodes ComicInfo.xml content. Files declaring a legacy
// encoding in their XML declaration are transcoded to UTF-8.
func parseComicInfo(data []byte) (*comicInfoXML, error) {
	data = stripBOM(data)

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var ci comicInfoXML
	if err := dec.Decode(&ci); err != nil {
		return nil, fmt.Errorf("comic: parse %s: %w", comicInfoName, err)
	}
	return &ci, nil
}
