// Package document checks CV uploads before they are sent for parsing. The
// parser only accepts PDFs with a text layer, so scanned or non-PDF files
// are rejected locally.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
)

// MaxSize is the largest file accepted for upload.
const MaxSize = 10 << 20

const (
	reasonNotPDF   = "Only PDF files are supported"
	reasonNoText   = "Could not extract text from PDF. It might be an image-based PDF (scanned)."
	reasonTooLarge = "PDF is larger than 10 MiB"
)

// Document is a PDF that passed the pre-flight checks.
type Document struct {
	Name  string
	Pages int
	data  []byte
}

// Reader returns the raw file contents.
func (d Document) Reader() io.Reader { return bytes.NewReader(d.data) }

// Size returns the file size in bytes.
func (d Document) Size() int { return len(d.data) }

// Open reads and inspects the file at path.
func Open(path string) (Document, error) {
	if !isPDFName(path) {
		return Document{}, invalid(reasonNotPDF)
	}
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Inspect(filepath.Base(path), data)
}

// Inspect validates data as a PDF named name: the name must end in .pdf, the
// file must parse, have at least one page and carry extractable text.
// Failures are *apperr.ValidationError.
func Inspect(name string, data []byte) (Document, error) {
	if !isPDFName(name) {
		return Document{}, invalid(reasonNotPDF)
	}
	if len(data) > MaxSize {
		return Document{}, invalid(reasonTooLarge)
	}

	pages, hasText, err := scan(data)
	if err != nil {
		return Document{}, invalid(fmt.Sprintf("%s is not a readable PDF: %v", name, err))
	}
	if pages == 0 || !hasText {
		return Document{}, invalid(reasonNoText)
	}
	return Document{Name: name, Pages: pages, data: data}, nil
}

// scan counts pages and reports whether any page has non-blank text. The
// pdf package panics on some malformed inputs.
func scan(data []byte) (pages int, hasText bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, false, err
	}
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			return pages, true, nil
		}
	}
	return pages, false, nil
}

func isPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func invalid(reason string) error {
	return &apperr.ValidationError{Fields: []string{"file"}, Reason: reason}
}
