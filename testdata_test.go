package comic

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zip"
)

// testFile is one entry of a synthesised archive. Entries are written in
// slice order so tests control the container listing.
type testFile struct {
	Name      string
	Body      string
	Encrypted bool // sets the ZIP encryption flag; ignored for RAR and 7z
	Stored    bool // ZIP only: store instead of deflate
}

// pagesOf returns image entries whose body is derived from the name, so
// tests can tell pages apart by content.
func pagesOf(names ...string) []testFile {
	files := make([]testFile, len(names))
	for i, n := range names {
		files[i] = testFile{Name: n, Body: "img:" + n}
	}
	return files
}

// buildTestZip creates an in-memory ZIP archive from files and returns its
// bytes. Names that are not valid UTF-8 are stored as raw bytes without the
// UTF-8 flag, like archivers running on a legacy code page do.
// It calls t.Fatal on any error.
func buildTestZip(t testing.TB, files ...testFile) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, f := range files {
		fh := &zip.FileHeader{Name: f.Name, Method: zip.Deflate}
		if f.Stored {
			fh.Method = zip.Store
		}
		if f.Encrypted {
			fh.Flags |= zipFlagEncrypted
		}
		fw, err := zw.CreateHeader(fh)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", f.Name, err)
		}
		if _, err := io.WriteString(fw, f.Body); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// RAR 1.5 block types and flags used by buildTestRar.
const (
	rarTestBlockMain = 0x73
	rarTestBlockFile = 0x74
	rarTestBlockEnd  = 0x7b

	rarTestArcSolid  = 0x0008
	rarTestFileSolid = 0x0010
	rarTestHasData   = 0x8000
)

// buildTestRar creates a store-only RAR 1.5 archive. Names are written as
// raw bytes without the unicode flag. When solid is set, the archive header
// and every file after the first carry the solid flag.
func buildTestRar(t testing.TB, solid bool, files ...testFile) []byte {
	t.Helper()
	var out []byte
	out = append(out, "Rar!\x1a\x07\x00"...)

	var mainFlags uint16
	if solid {
		mainFlags = rarTestArcSolid
	}
	out = append(out, rarTestBlock(rarTestBlockMain, mainFlags, make([]byte, 6))...)

	for i, f := range files {
		if len(f.Name) > 0xffff {
			t.Fatalf("buildTestRar: name too long: %d bytes", len(f.Name))
		}
		data := []byte(f.Body)
		// PACK_SIZE UNP_SIZE HOST_OS FILE_CRC FTIME UNP_VER METHOD NAME_SIZE ATTR
		body := make([]byte, 25, 25+len(f.Name))
		binary.LittleEndian.PutUint32(body[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(body[4:], uint32(len(data)))
		body[8] = 2
		binary.LittleEndian.PutUint32(body[9:], crc32.ChecksumIEEE(data))
		binary.LittleEndian.PutUint32(body[13:], 0x5a210000)
		body[17] = 20
		body[18] = 0x30
		binary.LittleEndian.PutUint16(body[19:], uint16(len(f.Name)))
		binary.LittleEndian.PutUint32(body[21:], 0x20)
		body = append(body, f.Name...)

		flags := uint16(rarTestHasData)
		if solid && i > 0 {
			flags |= rarTestFileSolid
		}
		out = append(out, rarTestBlock(rarTestBlockFile, flags, body)...)
		out = append(out, data...)
	}

	out = append(out, rarTestBlock(rarTestBlockEnd, 0, nil)...)
	return out
}

// rarTestBlock frames body as a RAR 1.5 block with a valid header CRC.
func rarTestBlock(htype byte, flags uint16, body []byte) []byte {
	b := make([]byte, 7, 7+len(body))
	b[2] = htype
	binary.LittleEndian.PutUint16(b[3:], flags)
	binary.LittleEndian.PutUint16(b[5:], uint16(7+len(body)))
	b = append(b, body...)
	binary.LittleEndian.PutUint16(b[0:], uint16(crc32.ChecksumIEEE(b[2:])))
	return b
}

// 7z property IDs used by buildTest7z.
const (
	szEnd              = 0x00
	szHeader           = 0x01
	szMainStreamsInfo  = 0x04
	szFilesInfo        = 0x05
	szPackInfo         = 0x06
	szUnpackInfo       = 0x07
	szSubStreamsInfo   = 0x08
	szSize             = 0x09
	szCRC              = 0x0a
	szFolder           = 0x0b
	szCodersUnpackSize = 0x0c
	szEmptyStream      = 0x0e
	szName             = 0x11
	szWinAttributes    = 0x15
	szEncodedHeader    = 0x17
)

// szCopyCoder is a single coder with the Copy method: data is stored as is.
var szCopyCoder = []byte{0x01, 0x00}

// szTestFolder describes one folder of a 7z streams section.
type szTestFolder struct {
	coder      []byte
	packSize   uint64
	unpackSize uint64
}

// buildTest7z creates a 7z archive with a plain header in which every file
// is stored uncompressed in its own folder. Names ending in "/" become
// directories. Empty files are not supported.
func buildTest7z(t testing.TB, files ...testFile) []byte {
	t.Helper()
	packed, header := szTestHeader(t, files)
	return szTestArchive(packed, header)
}

// buildTestEncrypted7z is like buildTest7z but encrypts the header with
// AES-256 under password, the way 7-Zip does with "encrypt file names". The
// key is derived without stretching (7z cycle count 0x3f).
func buildTestEncrypted7z(t testing.TB, password string, files ...testFile) []byte {
	t.Helper()
	packed, header := szTestHeader(t, files)

	key := make([]byte, 32)
	copy(key, szUTF16(password))
	iv := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("buildTestEncrypted7z: %v", err)
	}
	sealed := make([]byte, (len(header)+aes.BlockSize-1)/aes.BlockSize*aes.BlockSize)
	copy(sealed, header)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed, sealed)

	// AES-256 + SHA-256 coder: no salt, a 16-byte IV, no key stretching.
	coder := append([]byte{0x24, 0x06, 0xf1, 0x07, 0x01, 18, 0x7f, 0x0f}, iv...)
	encoded := []byte{szEncodedHeader}
	encoded = append(encoded, szTestStreams(uint64(len(packed)),
		[]szTestFolder{{coder: coder, packSize: uint64(len(sealed)), unpackSize: uint64(len(header))}}, nil)...)

	return szTestArchive(append(packed, sealed...), encoded)
}

// szTestHeader returns the packed file data and the plain header
// describing files.
func szTestHeader(t testing.TB, files []testFile) (packed, header []byte) {
	t.Helper()
	var (
		folders []szTestFolder
		crcs    []uint32
		dirs    = make([]bool, len(files))
		hasDir  bool
	)
	for i, f := range files {
		if strings.HasSuffix(f.Name, "/") {
			dirs[i], hasDir = true, true
			continue
		}
		if f.Body == "" {
			t.Fatalf("buildTest7z: %s: empty files are not supported", f.Name)
		}
		packed = append(packed, f.Body...)
		folders = append(folders, szTestFolder{coder: szCopyCoder, packSize: uint64(len(f.Body)), unpackSize: uint64(len(f.Body))})
		crcs = append(crcs, crc32.ChecksumIEEE([]byte(f.Body)))
	}

	header = []byte{szHeader}
	if len(folders) > 0 {
		header = append(header, szMainStreamsInfo)
		header = append(header, szTestStreams(0, folders, crcs)...)
	}

	header = append(header, szFilesInfo)
	header = append(header, szNumber(uint64(len(files)))...)
	if hasDir {
		bits := make([]byte, (len(files)+7)/8)
		for i, d := range dirs {
			if d {
				bits[i/8] |= 0x80 >> (i % 8)
			}
		}
		header = append(header, szEmptyStream)
		header = append(header, szNumber(uint64(len(bits)))...)
		header = append(header, bits...)
	}

	var names []byte
	for _, f := range files {
		names = append(names, szUTF16(strings.TrimSuffix(f.Name, "/"))...)
		names = append(names, 0, 0)
	}
	header = append(header, szName)
	header = append(header, szNumber(uint64(1+len(names)))...)
	header = append(header, 0) // not external
	header = append(header, names...)

	if hasDir {
		header = append(header, szWinAttributes)
		header = append(header, szNumber(uint64(2+4*len(files)))...)
		header = append(header, 1, 0) // all defined, not external
		for _, d := range dirs {
			attr := uint32(0x20) // FILE_ATTRIBUTE_ARCHIVE
			if d {
				attr = 0x10 // FILE_ATTRIBUTE_DIRECTORY
			}
			header = binary.LittleEndian.AppendUint32(header, attr)
		}
	}
	header = append(header, szEnd) // files info
	header = append(header, szEnd) // header
	return packed, header
}

// szTestStreams encodes a streams section whose folders each hold one
// stream, packed back to back from packPos. crcs, when set, are written as
// the per-stream digests.
func szTestStreams(packPos uint64, folders []szTestFolder, crcs []uint32) []byte {
	b := []byte{szPackInfo}
	b = append(b, szNumber(packPos)...)
	b = append(b, szNumber(uint64(len(folders)))...)
	b = append(b, szSize)
	for _, f := range folders {
		b = append(b, szNumber(f.packSize)...)
	}
	b = append(b, szEnd)

	b = append(b, szUnpackInfo, szFolder)
	b = append(b, szNumber(uint64(len(folders)))...)
	b = append(b, 0) // not external
	for _, f := range folders {
		b = append(b, 1) // one coder
		b = append(b, f.coder...)
	}
	b = append(b, szCodersUnpackSize)
	for _, f := range folders {
		b = append(b, szNumber(f.unpackSize)...)
	}
	b = append(b, szEnd)

	if crcs != nil {
		b = append(b, szSubStreamsInfo, szCRC, 1) // all digests defined
		for _, c := range crcs {
			b = binary.LittleEndian.AppendUint32(b, c)
		}
		b = append(b, szEnd)
	}
	return append(b, szEnd)
}

// szTestArchive frames packed data and a header with the signature and
// start headers.
func szTestArchive(packed, header []byte) []byte {
	start := make([]byte, 20)
	binary.LittleEndian.PutUint64(start[0:], uint64(len(packed)))
	binary.LittleEndian.PutUint64(start[8:], uint64(len(header)))
	binary.LittleEndian.PutUint32(start[16:], crc32.ChecksumIEEE(header))

	out := []byte("7z\xbc\xaf\x27\x1c\x00\x04")
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(start))
	out = append(out, start...)
	out = append(out, packed...)
	return append(out, header...)
}

// szNumber encodes v in the 7z variable-length format: the count of leading
// one bits in the first byte gives the number of little-endian bytes that
// follow.
func szNumber(v uint64) []byte {
	for n := 0; n < 8; n++ {
		if v>>(8*n) < 1<<(7-n) {
			out := []byte{^(byte(0xff) >> n) | byte(v>>(8*n))}
			for i := 0; i < n; i++ {
				out = append(out, byte(v>>(8*i)))
			}
			return out
		}
	}
	return binary.LittleEndian.AppendUint64([]byte{0xff}, v)
}

// szUTF16 encodes s as UTF-16LE without a terminator.
func szUTF16(s string) []byte {
	var b []byte
	for _, u := range utf16.Encode([]rune(s)) {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

// writeTestFile writes data to a file called name in a temporary directory
// and returns its path. This variant is useful for testing Open() which
// requires a file path.
func writeTestFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fp, data, 0o644); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}
	return fp
}

// openTestBook opens data with NewReader and closes the Book when the test
// ends.
func openTestBook(t testing.TB, name string, data []byte, opts ...Option) *Book {
	t.Helper()
	b, err := NewReader(bytes.NewReader(data), int64(len(data)), name, opts...)
	if err != nil {
		t.Fatalf("NewReader(%s) error = %v", name, err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// pageNames returns the names of every page of b in reading order.
func pageNames(t testing.TB, b *Book) []string {
	t.Helper()
	pages, err := b.Pages()
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return names
}

// dirEntries lists dir, failing the test on error.
func dirEntries(t testing.TB, dir string) []os.DirEntry {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	return ents
}
