package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	text, err := Extract([]byte("plain text content"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain text content", text)
}

func TestExtractUnknownTypeFallsBackToRawDecode(t *testing.T) {
	text, err := Extract([]byte("# markdown heading"), "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# markdown heading", text)

	text, err = Extract([]byte("no extension at all"), "LICENSE")
	require.NoError(t, err)
	assert.Equal(t, "no extension at all", text)
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>world</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := Extract(buf.Bytes(), "report.DOCX")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestExtractCorruptDOCX(t *testing.T) {
	_, err := Extract([]byte("not a zip archive"), "broken.docx")
	assert.Error(t, err)
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract([]byte("not a pdf"), "broken.pdf")
	assert.Error(t, err)
}
