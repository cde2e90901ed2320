// Package extract turns ticket documents into plain text.
package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Extractor produces the flattened text of one ticket document. The parser
// treats the result as an opaque line sequence; how it is produced is this
// package's concern alone.
type Extractor interface {
	Text(data []byte) (string, error)
}

// PDF extracts text from PDF documents using MuPDF.
type PDF struct{}

// NewPDF creates a new PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Text returns the plain text of every page, in order, newline separated.
func (p *PDF) Text(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", n, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
