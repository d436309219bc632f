// Package ingest turns source files into page-tagged chunks and stores them
// as a new document.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/abhisek/lumen/internal/store"
)

// ReadFile reads a PDF or plain-text file into pages, chosen by extension.
func ReadFile(path string) ([]store.PageText, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ReadPDF(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadText(f)
	}
}

// ReadPDF extracts the plain text of every page in the PDF at path.
func ReadPDF(path string) ([]store.PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ReadPDFBytes(data)
}

// ReadPDFBytes extracts the plain text of every page in an in-memory PDF.
// Pages without a content stream are skipped.
func ReadPDFBytes(data []byte) ([]store.PageText, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var pages []store.PageText
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, store.PageText{PageNumber: i, Content: text})
	}
	return pages, nil
}

// ReadText reads plain text. Form feeds separate pages; text without them
// is page 1. Invalid UTF-8 is replaced.
func ReadText(r io.Reader) ([]store.PageText, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	parts := strings.Split(text, "\f")
	pages := make([]store.PageText, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, store.PageText{PageNumber: i + 1, Content: p})
	}
	return pages, nil
}
