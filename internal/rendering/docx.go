package rendering

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/jonathan/essayflow/internal/types"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// RenderDOCX renders the essay as a minimal WordprocessingML package: the
// three required parts and one paragraph per heading, body paragraph and
// reference entry.
func (r *DocumentRenderer) RenderDOCX(essay *types.EssayOutput, meta Meta) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for _, line := range headerLines(meta) {
		writeDocxParagraph(&doc, line, false, false)
	}
	writeDocxParagraph(&doc, essay.Title, true, true)

	for _, para := range splitParagraphs(essay.Introduction) {
		writeDocxParagraph(&doc, para, false, false)
	}
	for _, section := range essay.BodySections {
		writeDocxParagraph(&doc, section.Title, true, false)
		for _, para := range splitParagraphs(section.Content) {
			writeDocxParagraph(&doc, para, false, false)
		}
	}
	writeDocxParagraph(&doc, "Conclusion", true, false)
	for _, para := range splitParagraphs(essay.Conclusion) {
		writeDocxParagraph(&doc, para, false, false)
	}

	if len(essay.References) > 0 {
		writeDocxParagraph(&doc, "References", true, true)
		for _, ref := range essay.References {
			writeDocxParagraph(&doc, ref, false, false)
		}
	}

	doc.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>`)
	doc.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", doc.String()},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, &RenderError{Format: "docx", Message: "failed to create archive part " + part.name, Cause: err}
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, &RenderError{Format: "docx", Message: "failed to write archive part " + part.name, Cause: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &RenderError{Format: "docx", Message: "failed to finalize archive", Cause: err}
	}
	return buf.Bytes(), nil
}

func writeDocxParagraph(sb *strings.Builder, text string, bold, centered bool) {
	sb.WriteString(`<w:p>`)
	if centered {
		sb.WriteString(`<w:pPr><w:jc w:val="center"/></w:pPr>`)
	}
	sb.WriteString(`<w:r>`)
	if bold {
		sb.WriteString(`<w:rPr><w:b/></w:rPr>`)
	}
	sb.WriteString(`<w:t xml:space="preserve">`)
	sb.WriteString(escapeXML(text))
	sb.WriteString(`</w:t></w:r></w:p>`)
}

func escapeXML(text string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text))
	return buf.String()
}
