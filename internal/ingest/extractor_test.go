package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRegistry_Find(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name, contentType, want string
	}{
		{"nda.pdf", "", "pdf"},
		{"upload", "application/pdf", "pdf"},
		{"nda.DOCX", "", "docx"},
		{"page", "text/html; charset=utf-8", "html"},
		{"terms.htm", "", "html"},
		{"nda.txt", "", "text"},
		{"upload", "text/plain", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"|"+tt.contentType, func(t *testing.T) {
			e, err := r.Find(tt.name, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Name())
		})
	}

	_, err := r.Find("image.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRegistry_Extract_Errors(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.Extract(ctx, "empty.txt", "", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = r.Extract(ctx, "blank.txt", "", []byte("  \n\t "))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = r.Extract(ctx, "broken.pdf", "", []byte("not a pdf at all"))
	assert.ErrorIs(t, err, ErrExtraction)

	_, err = r.Extract(ctx, "broken.docx", "", []byte("not a zip"))
	assert.ErrorIs(t, err, ErrExtraction)

	_, err = r.Extract(ctx, "scan.tiff", "image/tiff", []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTextExtractor(t *testing.T) {
	raw := []byte("\ufeff1. Purpose.  \r\n2. The Company shall pay.\r\n")
	doc, err := NewRegistry().Extract(context.Background(), "nda.txt", "", raw)
	require.NoError(t, err)
	assert.Equal(t, "1. Purpose.\n2. The Company shall pay.", doc.Text)
	assert.Equal(t, "text", doc.Extractor)
	assert.Equal(t, int64(len(raw)), doc.Size)
}

func TestTextExtractor_InvalidUTF8(t *testing.T) {
	text, err := NewTextExtractor().Extract(context.Background(), []byte("fee \xff due"))
	require.NoError(t, err)
	assert.Equal(t, "fee \ufffd due", text)
}

func TestHTMLExtractor(t *testing.T) {
	page := `<html><head><title>Ignored</title><style>p{}</style></head><body>
<h1>MASTER AGREEMENT</h1>
<script>var x = "shall";</script>
<p>1. The Supplier <b>shall</b> deliver the goods.</p>
<ul><li>2. The Customer may terminate.</li></ul>
</body></html>`

	text, err := NewHTMLExtractor().Extract(context.Background(), []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "MASTER AGREEMENT\n1. The Supplier shall deliver the goods.\n2. The Customer may terminate.", text)
	assert.NotContains(t, text, "Ignored")
	assert.NotContains(t, text, "var x")
}

func TestDOCXExtractor(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>1. Confidentiality</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">The Recipient </w:t></w:r><w:r><w:t>shall protect the information.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Name:</w:t><w:tab/><w:t>Acme</w:t><w:br/><w:t>Title:</w:t></w:r></w:p>`)

	doc, err := NewRegistry().Extract(context.Background(), "nda.docx", "", data)
	require.NoError(t, err)
	assert.Equal(t, "docx", doc.Extractor)
	assert.Equal(t, "1. Confidentiality\nThe Recipient shall protect the information.\nName:\tAcme\nTitle:", doc.Text)
}

func TestDOCXExtractor_MissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewDOCXExtractor().Extract(context.Background(), buf.Bytes())
	assert.Error(t, err)
}

func TestLoader_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msa.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Vendor shall indemnify the Client."), 0o600))

	l := NewLoader(nil, nil, 1<<20, nil, nil)
	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Name)
	assert.Equal(t, "The Vendor shall indemnify the Client.", doc.Text)

	text, err := Extract(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, doc.Text, text)
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader(nil, nil, 1<<20, nil, nil)

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = l.Load(context.Background(), "https://example.com/nda.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDocumentKind(t *testing.T) {
	assert.Equal(t, "pdf", documentKind("a/b/contract.PDF", ""))
	assert.Equal(t, "text/html", documentKind("/terms", "text/html; charset=utf-8"))
	assert.Equal(t, "unknown", documentKind("/terms", ""))
}
