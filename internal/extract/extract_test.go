package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/ragpipe/internal/log"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// createTestDOCX builds a minimal valid DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}
	if coreXML != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = core.Write([]byte(coreXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		path     string
		want     DocumentType
		detected bool
	}{
		{"notes.txt", TypeText, true},
		{"REPORT.PDF", TypePDF, true},
		{"thesis.docx", TypeDocx, true},
		{"readme.md", TypeMarkdown, true},
		{"guide.markdown", TypeMarkdown, true},
		{"image.png", "", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := DetectType(tt.path)
			assert.Equal(t, tt.detected, ok)
			if tt.detected {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtract_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", []byte("first line\nsecond line\n"))

	e := New(log.NewNop())
	content, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "first line\nsecond line\n", content.Text)
	assert.Equal(t, TypeText, content.Type)
	assert.Equal(t, "notes.txt", content.Metadata["filename"])
	assert.Equal(t, ".txt", content.Metadata["file_extension"])
	assert.Equal(t, int64(23), content.Metadata["file_size"])
	assert.Equal(t, 23, content.Metadata["characters"])
	assert.NotEmpty(t, content.Metadata["modified_at"])
}

func TestExtract_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.md", []byte("# Title\n\nBody text."))

	e := New(log.NewNop())
	content, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, TypeMarkdown, content.Type)
	assert.Contains(t, content.Text, "Body text.")
}

func TestExtract_NotFound(t *testing.T) {
	e := New(log.NewNop())

	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtract_DirectoryIsNotFound(t *testing.T) {
	e := New(log.NewNop())

	_, err := e.Extract(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtract_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", []byte{0x89, 0x50, 0x4e, 0x47})

	e := New(log.NewNop())
	_, err := e.Extract(path)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.txt", []byte{0xff, 0xfe, 0x80, 0x81})

	e := New(log.NewNop())
	_, err := e.Extract(path)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_Docx(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t></w:t></w:r></w:p>
<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Document</dc:title>
<dc:creator>Jo Writer</dc:creator>
<dc:subject>Testing</dc:subject>
</cp:coreProperties>`

	dir := t.TempDir()
	path := writeFile(t, dir, "thesis.docx", createTestDOCX(t, docXML, coreXML))

	e := New(log.NewNop())
	content, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", content.Text)
	assert.Equal(t, TypeDocx, content.Type)
	assert.Equal(t, "Test Document", content.Metadata["title"])
	assert.Equal(t, "Jo Writer", content.Metadata["author"])
	assert.Equal(t, "Testing", content.Metadata["subject"])
	assert.Equal(t, 3, content.Metadata["paragraphs"])
	assert.Equal(t, "thesis.docx", content.Metadata["filename"])
}

func TestExtract_DocxPartialCoreProperties(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Body text.</w:t></w:r></w:p>
</w:body>
</w:document>`
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Only a Title</dc:title>
</cp:coreProperties>`

	dir := t.TempDir()
	path := writeFile(t, dir, "sparse.docx", createTestDOCX(t, docXML, coreXML))

	e := New(log.NewNop())
	content, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "Only a Title", content.Metadata["title"])
	for _, key := range []string{"author", "subject", "keywords"} {
		assert.NotContains(t, content.Metadata, key)
	}
}

func TestExtract_DocxWithoutCoreProperties(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Body text.</w:t></w:r></w:p>
</w:body>
</w:document>`

	dir := t.TempDir()
	path := writeFile(t, dir, "bare.docx", createTestDOCX(t, docXML, ""))

	e := New(log.NewNop())
	content, err := e.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "Body text.", content.Text)
	for _, key := range []string{"title", "author", "subject", "keywords"} {
		assert.NotContains(t, content.Metadata, key)
	}
}

func TestExtract_DocxNotAnArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fake.docx", []byte("this is not a zip file"))

	e := New(log.NewNop())
	_, err := e.Extract(path)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_CorruptPDFExhaustsEngines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.pdf", []byte("%PDF-1.4 garbage"))

	e := New(log.NewNop())
	_, err := e.Extract(path)
	require.ErrorIs(t, err, ErrExtractionFailed)

	// The failure names every attempted engine and flags the OCR case.
	assert.Contains(t, err.Error(), "ledongthuc")
	assert.Contains(t, err.Error(), "docconv")
	assert.Contains(t, err.Error(), "OCR")
}
