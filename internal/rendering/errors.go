// Package rendering produces downloadable PDF and DOCX documents from
// structured essays.
package rendering

import "fmt"

// RenderError represents a failure producing a document.
type RenderError struct {
	Format  string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s render error: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s render error: %s", e.Format, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
