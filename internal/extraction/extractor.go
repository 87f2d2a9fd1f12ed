// Package extraction converts uploaded assignment documents into clean
// plain text suitable for prompt construction.
package extraction

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MinTextLength is the minimum number of characters an extracted document
// must contain. Shorter documents cannot drive essay generation.
const MinTextLength = 50

// Extract converts an uploaded document to clean plain text. The format is
// chosen from the filename extension, falling back to content sniffing for
// HTML.
func Extract(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".md", ".markdown":
		text, err = fromPlainText(filename, data)
	case ".html", ".htm":
		text, err = fromHTML(filename, data)
	case ".docx":
		text, err = fromDOCX(filename, data)
	case "":
		if looksLikeHTML(data) {
			text, err = fromHTML(filename, data)
		} else {
			text, err = fromPlainText(filename, data)
		}
	default:
		return "", &UnsupportedFormatError{Filename: filename, Format: ext}
	}
	if err != nil {
		return "", err
	}

	if len(text) < MinTextLength {
		return "", &EmptyDocumentError{Filename: filename, Length: len(text)}
	}
	return text, nil
}

func fromPlainText(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &ParseError{Filename: filename, Message: "content is not valid UTF-8 text"}
	}
	return CleanText(string(data)), nil
}

// fromHTML extracts readable text from an HTML document, dropping
// navigation and script noise.
func fromHTML(filename string, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", &ParseError{Filename: filename, Message: "failed to parse HTML", Cause: err}
	}

	doc.Find("nav, footer, header, script, style, noscript, .sidebar, .cookie-banner, .popup").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var sb strings.Builder
	root.Find("h1, h2, h3, h4, h5, h6, p, li, td, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			return
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	})

	// Pages without block-level markup still carry text directly in body
	if sb.Len() == 0 {
		sb.WriteString(root.Text())
	}

	return CleanText(sb.String()), nil
}

// fromDOCX pulls paragraph text out of the main document part of a Word
// archive.
func fromDOCX(filename string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ParseError{Filename: filename, Message: "not a valid docx archive", Cause: err}
	}

	var docPart *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docPart = f
			break
		}
	}
	if docPart == nil {
		return "", &ParseError{Filename: filename, Message: "archive has no word/document.xml part"}
	}

	rc, err := docPart.Open()
	if err != nil {
		return "", &ParseError{Filename: filename, Message: "failed to open document part", Cause: err}
	}
	defer rc.Close()

	text, err := wordprocessingText(rc)
	if err != nil {
		return "", &ParseError{Filename: filename, Message: "failed to decode document XML", Cause: err}
	}
	return CleanText(text), nil
}

// wordprocessingText walks WordprocessingML, collecting run text and
// inserting newlines at paragraph boundaries.
func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func looksLikeHTML(data []byte) bool {
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}
