package extraction

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assignmentText = `Assignment: Write a 2000 word essay on the impact of urbanization
on local ecosystems. Use APA citations and at least five sources.`

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract("assignment.txt", []byte(assignmentText))
	require.NoError(t, err)
	assert.Contains(t, text, "impact of urbanization")
	assert.Contains(t, text, "APA citations")
}

func TestExtract_Markdown(t *testing.T) {
	content := "# Essay Brief\n\n- Topic: renewable energy policy\n- Length: 1500 words\n\nDiscuss the economic tradeoffs of subsidy programs in detail."

	text, err := Extract("brief.md", []byte(content))
	require.NoError(t, err)
	assert.Contains(t, text, "# Essay Brief")
	assert.Contains(t, text, "- Topic: renewable energy policy")
}

func TestExtract_HTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html><head><title>Brief</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<main>
<h1>Essay Assignment</h1>
<p>Write a comparative analysis of two public health interventions, covering cost, reach, and measured outcomes.</p>
</main>
<footer>Copyright</footer>
</body></html>`

	text, err := Extract("brief.html", []byte(html))
	require.NoError(t, err)
	assert.Contains(t, text, "Essay Assignment")
	assert.Contains(t, text, "comparative analysis")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Home | About")
}

func TestExtract_HTMLSniffedWithoutExtension(t *testing.T) {
	html := "<html><body><p>Write a long-form essay about maritime trade routes in the early modern period.</p></body></html>"

	text, err := Extract("upload", []byte(html))
	require.NoError(t, err)
	assert.Contains(t, text, "maritime trade routes")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_DOCX(t *testing.T) {
	data := buildTestDOCX(t,
		"Essay Assignment",
		"Analyze the role of central banks in managing inflation expectations over the last two decades.",
	)

	text, err := Extract("brief.docx", data)
	require.NoError(t, err)
	assert.Contains(t, text, "Essay Assignment")
	assert.Contains(t, text, "central banks")
}

func TestExtract_DOCXInvalidArchive(t *testing.T) {
	_, err := Extract("brief.docx", []byte("this is not a zip archive at all"))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "brief.docx", parseErr.Filename)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	_, err := Extract("scan.tiff", []byte(assignmentText))
	require.Error(t, err)

	var formatErr *UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, ".tiff", formatErr.Format)
}

func TestExtract_TooShort(t *testing.T) {
	_, err := Extract("note.txt", []byte("too short"))
	require.Error(t, err)

	var emptyErr *EmptyDocumentError
	require.ErrorAs(t, err, &emptyErr)
	assert.Less(t, emptyErr.Length, MinTextLength)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	_, err := Extract("note.txt", []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCleanText_NormalizesWhitespace(t *testing.T) {
	input := "First   line  with   spaces\r\n\r\n\r\n\r\nSecond line"

	result := CleanText(input)
	assert.Equal(t, "First line with spaces\n\nSecond line", result)
}

func TestCleanText_PreservesHeadingsAndBullets(t *testing.T) {
	input := "  ## Requirements\n  - cite five sources\n  - use APA style"

	result := CleanText(input)
	assert.Contains(t, result, "## Requirements")
	assert.Contains(t, result, "- cite five sources")
}

// buildTestDOCX constructs a minimal Word archive with one paragraph per
// input string.
func buildTestDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>`)
		sb.WriteString(p)
		sb.WriteString(`</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(sb.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}
