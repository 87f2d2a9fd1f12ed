package extraction

import "fmt"

// UnsupportedFormatError indicates the uploaded document format cannot be
// handled.
type UnsupportedFormatError struct {
	Filename string
	Format   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q for file %s", e.Format, e.Filename)
}

// EmptyDocumentError indicates the document produced too little text to
// drive essay generation.
type EmptyDocumentError struct {
	Filename string
	Length   int
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document %s is too short to process (%d characters extracted)", e.Filename, e.Length)
}

// ParseError indicates the document content could not be parsed.
type ParseError struct {
	Filename string
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse %s: %s: %v", e.Filename, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Filename, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
