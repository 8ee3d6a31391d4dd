package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-ai/internal/models"
)

// writeTestPDF writes a minimal PDF with one Helvetica text line per page.
func writeTestPDF(t *testing.T, path string, pages ...string) {
	t.Helper()

	var objects []string
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Cells divide by mitosis</w:t></w:r></w:p><w:p><w:r><w:t xml:space="preserve">Meiosis makes </w:t></w:r><w:r><w:t>gametes</w:t></w:r></w:p><w:tbl><w:tr><w:tc><w:p><w:r><w:t>table cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl><w:p><w:r><w:t>Done</w:t></w:r></w:p><w:sectPr/></w:body></w:document>`

func writeTestDOCX(t *testing.T, path string, documentXML string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)

	w, err = zw.Create(docxBodyPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Photosynthesis converts light.\nÜber alles."), 0o644))

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentTXT)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light.\nÜber alles.", text)
}

func TestExtractPlainTextRejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latin1.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xe9}, 0o644))

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentTXT)
	assert.ErrorIs(t, err, ErrUnreadableDocument)
	assert.Empty(t, text)
}

func TestExtractUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pptx")
	require.NoError(t, os.WriteFile(path, []byte("anything"), 0o644))

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentType("pptx"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lecture.pdf")
	writeTestPDF(t, path, "First page", "Second page")

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentPDF)
	require.NoError(t, err)
	// Each page's plain text starts its line with a newline; pages are
	// concatenated without an extra separator.
	assert.Equal(t, "\nFirst page\nSecond page", text)
}

func TestExtractCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nthis is not a pdf body"), 0o644))

	_, err := NewTextExtractor(nil).Extract(path, models.DocumentPDF)
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractDOCX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "essay.docx")
	writeTestDOCX(t, path, testDocumentXML)

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Cells divide by mitosis\nMeiosis makes gametes\nDone", text)
}

const textBoxDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"><w:body>` +
	`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Before</w:t></w:r>` +
	`<w:r><mc:AlternateContent><mc:Choice Requires="wps"><w:drawing><wps:txbx><w:txbxContent><w:p><w:r><w:t>boxed</w:t></w:r></w:p></w:txbxContent></wps:txbx></w:drawing></mc:Choice>` +
	`<mc:Fallback><w:pict><w:txbxContent><w:p><w:r><w:t>fallback</w:t></w:r></w:p></w:txbxContent></w:pict></mc:Fallback></mc:AlternateContent></w:r>` +
	`<w:r><w:tab/><w:t>after</w:t></w:r></w:p>` +
	`<w:p><w:r><w:drawing><w:txbxContent><w:p><w:r><w:t>bare drawing</w:t></w:r></w:p></w:txbxContent></w:drawing></w:r>` +
	`<w:hyperlink><w:r><w:t>linked</w:t></w:r></w:hyperlink></w:p>` +
	`</w:body></w:document>`

func TestExtractDOCXSkipsTextBoxes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxes.docx")
	writeTestDOCX(t, path, textBoxDocumentXML)

	text, err := NewTextExtractor(nil).Extract(path, models.DocumentDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Before\tafter\nlinked", text)
}

func TestExtractDOCXWithoutBody(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "plain.docx")
	require.NoError(t, os.WriteFile(notZip, []byte("plain text pretending"), 0o644))
	_, err := NewTextExtractor(nil).Extract(notZip, models.DocumentDOCX)
	assert.ErrorIs(t, err, ErrUnreadableDocument)

	bad := filepath.Join(dir, "bad.docx")
	writeTestDOCX(t, bad, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"></w:document>`)
	_, err = NewTextExtractor(nil).Extract(bad, models.DocumentDOCX)
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}
