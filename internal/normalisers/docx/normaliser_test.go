package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// buildDOCX assembles a minimal .docx archive from the given parts.
func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue grew in every region.</w:t></w:r></w:p>
  </w:body>
</w:document>`

const props = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Q3 Report</dc:title>
  <dc:creator>Finance Team</dc:creator>
</cp:coreProperties>`

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise(t *testing.T) {
	raw := &domain.RawDocument{
		Path:     "/docs/q3.docx",
		MIMEType: MIMEType,
		Content:  buildDOCX(t, map[string]string{bodyPart: body, propertiesPart: props}),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Q3 Report", doc.Title)
	assert.Equal(t, "docx", doc.Format)
	assert.Equal(t, "Quarterly report\nRevenue grew in every region.", doc.Content)
	assert.Equal(t, "Finance Team", doc.Metadata["author"])
}

func TestNormalise_NoProperties(t *testing.T) {
	raw := &domain.RawDocument{
		Path:    "/docs/board_minutes.docx",
		Content: buildDOCX(t, map[string]string{bodyPart: body}),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "board minutes", doc.Title)
	assert.Nil(t, doc.Metadata)
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		wantMsg string
	}{
		{"not a zip", []byte("plain text"), "not a zip archive"},
		{"missing body", buildDOCX(t, map[string]string{propertiesPart: props}), "missing word/document.xml"},
		{"broken xml", buildDOCX(t, map[string]string{bodyPart: "<w:document><w:body>"}), "parsing word/document.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), &domain.RawDocument{Path: "/docs/x.docx", Content: tt.content})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
