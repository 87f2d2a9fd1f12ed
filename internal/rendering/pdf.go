package rendering

import (
	"bytes"

	"github.com/go-pdf/fpdf"

	"github.com/jonathan/essayflow/internal/types"
)

const (
	pageMargin = 72 // one inch, in points
	bodySize   = 12
	titleSize  = 16
	lineHeight = 22
)

// RenderPDF renders the essay as a US Letter PDF with one-inch margins.
func (r *DocumentRenderer) RenderPDF(essay *types.EssayOutput, meta Meta) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	// Core fonts are latin-1; translate what we can and drop the rest
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Times", "", bodySize)
	for _, line := range headerLines(meta) {
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	pdf.Ln(lineHeight)

	pdf.SetFont("Times", "B", titleSize)
	pdf.MultiCell(0, lineHeight+4, tr(essay.Title), "", "C", false)
	pdf.Ln(lineHeight / 2)

	pdf.SetFont("Times", "", bodySize)
	writeParagraphs(pdf, tr, essay.Introduction)

	for _, section := range essay.BodySections {
		pdf.SetFont("Times", "B", bodySize+1)
		pdf.MultiCell(0, lineHeight, tr(section.Title), "", "L", false)
		pdf.SetFont("Times", "", bodySize)
		writeParagraphs(pdf, tr, section.Content)
	}

	pdf.SetFont("Times", "B", bodySize+1)
	pdf.MultiCell(0, lineHeight, tr("Conclusion"), "", "L", false)
	pdf.SetFont("Times", "", bodySize)
	writeParagraphs(pdf, tr, essay.Conclusion)

	if len(essay.References) > 0 {
		pdf.AddPage()
		pdf.SetFont("Times", "B", titleSize)
		pdf.MultiCell(0, lineHeight+4, tr("References"), "", "C", false)
		pdf.Ln(lineHeight / 2)

		pdf.SetFont("Times", "", bodySize)
		for _, ref := range essay.References {
			pdf.MultiCell(0, lineHeight, tr(ref), "", "L", false)
			pdf.Ln(lineHeight / 2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Format: "pdf", Message: "failed to write document", Cause: err}
	}
	return buf.Bytes(), nil
}

func writeParagraphs(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	for _, para := range splitParagraphs(text) {
		pdf.MultiCell(0, lineHeight, tr(para), "", "L", false)
		pdf.Ln(lineHeight / 2)
	}
}

func headerLines(meta Meta) []string {
	lines := make([]string, 0, 3)
	if meta.StudentName != "" {
		lines = append(lines, meta.StudentName)
	}
	if meta.CourseName != "" {
		lines = append(lines, meta.CourseName)
	}
	if !meta.Date.IsZero() {
		lines = append(lines, meta.Date.Format("January 2, 2006"))
	}
	return lines
}
