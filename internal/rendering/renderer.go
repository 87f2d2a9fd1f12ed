package rendering

import (
	"strings"
	"time"

	"github.com/jonathan/essayflow/internal/types"
)

// Meta is the title-page information added around the essay body.
type Meta struct {
	StudentName string
	CourseName  string
	Date        time.Time
}

// Renderer produces downloadable documents from a structured essay.
type Renderer interface {
	RenderPDF(essay *types.EssayOutput, meta Meta) ([]byte, error)
	RenderDOCX(essay *types.EssayOutput, meta Meta) ([]byte, error)
}

// DocumentRenderer renders essays in academic paper layout: a header with
// student and course details, the title, body sections with headings, and a
// references list.
type DocumentRenderer struct{}

// NewDocumentRenderer creates the default renderer.
func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{}
}

// splitParagraphs breaks text on blank lines, dropping empty chunks.
func splitParagraphs(text string) []string {
	chunks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	paras := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			paras = append(paras, chunk)
		}
	}
	return paras
}
