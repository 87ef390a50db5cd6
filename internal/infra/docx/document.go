package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
)

const (
	emuPerMM   = 36000
	twipsPerMM = 1440 / 25.4
)

// fixed so identical content always serializes to identical bytes
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

type embedded struct {
	name string
	rID  string
	pic  *Picture
}

// Document is an in-memory WordprocessingML package.
type Document struct {
	geometry entity.PageGeometry
	body     bytes.Buffer
	media    []embedded
}

// Writer creates gallery documents.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) NewDocument(geometry entity.PageGeometry) port.Document {
	return New(geometry)
}

func New(geometry entity.PageGeometry) *Document {
	return &Document{geometry: geometry}
}

func (d *Document) AddHeading(text string, level int) {
	if level < 1 {
		level = 1
	}
	fmt.Fprintf(&d.body, `<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr>`, level)
	d.writeRun(text)
	d.body.WriteString(`</w:p>`)
}

func (d *Document) AddParagraph(text string) {
	if text == "" {
		d.body.WriteString(`<w:p/>`)
		return
	}
	d.body.WriteString(`<w:p>`)
	d.writeRun(text)
	d.body.WriteString(`</w:p>`)
}

func (d *Document) writeRun(text string) {
	d.body.WriteString(`<w:r><w:t xml:space="preserve">`)
	_ = xml.EscapeText(&d.body, []byte(text))
	d.body.WriteString(`</w:t></w:r>`)
}

func (d *Document) LoadPicture(path string) (port.Picture, error) {
	pic, err := LoadPicture(path)
	if err != nil {
		return nil, err
	}
	return pic, nil
}

// AddPicture places pic inline, widthMM wide with the height following the aspect ratio.
func (d *Document) AddPicture(p port.Picture, widthMM float64) error {
	pic, ok := p.(*Picture)
	if !ok {
		return fmt.Errorf("unsupported picture type %T", p)
	}
	n := len(d.media) + 1
	e := embedded{
		name: fmt.Sprintf("image%d.%s", n, pic.ext),
		rID:  fmt.Sprintf("rIdImg%d", n),
		pic:  pic,
	}
	d.media = append(d.media, e)

	cx := int64(math.Round(widthMM * emuPerMM))
	cy := int64(math.Round(float64(cx) * float64(pic.height) / float64(pic.width)))
	fmt.Fprintf(&d.body, pictureXML, cx, cy, n, n, n, e.name, e.rID, cx, cy)
	return nil
}

// SerializedSize runs a full serialization into a counting sink.
func (d *Document) SerializedSize() (int64, error) {
	return d.WriteTo(io.Discard)
}

// Save writes the package to path through a sibling temp file.
func (d *Document) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gallery-*.docx")
	if err != nil {
		return fmt.Errorf("create document file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := d.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move document into place: %w", err)
	}
	return nil
}

// WriteTo serializes the package and reports the number of bytes written.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", d.contentTypes()},
		{"_rels/.rels", []byte(packageRels)},
		{"word/document.xml", d.documentXML()},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", d.documentRels()},
	}
	for _, p := range parts {
		if err := writeDeflated(zw, p.name, p.data); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	for _, m := range d.media {
		if err := writeStored(zw, "word/media/"+m.name, m.pic); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("close package: %w", err)
	}
	return cw.n, nil
}

func writeDeflated(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: entryTime}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// writeStored copies already compressed image bytes using the precomputed CRC.
func writeStored(zw *zip.Writer, name string, pic *Picture) error {
	size := uint64(len(pic.data))
	header := &zip.FileHeader{
		Name:               name,
		Method:             zip.Store,
		Modified:           entryTime,
		CRC32:              pic.crc,
		CompressedSize64:   size,
		UncompressedSize64: size,
	}
	writer, err := zw.CreateRaw(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(pic.data)
	return err
}

func (d *Document) documentXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(documentHeader)
	buf.Write(d.body.Bytes())
	g := d.geometry
	margin := twips(g.MarginMM)
	fmt.Fprintf(&buf,
		`<w:sectPr><w:pgSz w:w="%d" w:h="%d"/><w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`,
		twips(g.WidthMM), twips(g.HeightMM), margin, margin, margin, margin)
	buf.WriteString(`</w:body></w:document>`)
	return buf.Bytes()
}

func (d *Document) contentTypes() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	buf.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	buf.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	seen := map[string]bool{}
	for _, m := range d.media {
		if seen[m.pic.ext] {
			continue
		}
		seen[m.pic.ext] = true
		fmt.Fprintf(&buf, `<Default Extension="%s" ContentType="%s"/>`, m.pic.ext, m.pic.contentType)
	}
	buf.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	buf.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	buf.WriteString(`</Types>`)
	return buf.Bytes()
}

func (d *Document) documentRels() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	buf.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	for _, m := range d.media {
		fmt.Fprintf(&buf, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`, m.rID, m.name)
	}
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

func twips(mm float64) int {
	return int(math.Round(mm * twipsPerMM))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
