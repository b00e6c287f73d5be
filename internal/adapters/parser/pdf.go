// Package parser provides document parsing adapters.
// Parsers return the plain text of each page in order.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned by Registry.Parse for unknown extensions.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// PDFParser extracts page text with a pure Go PDF reader.
type PDFParser struct{}

// NewPDFParser creates a PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse returns one string per page. Pages that fail to extract are
// returned empty so page numbering stays aligned.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	n := r.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// TextParser handles plain text and markdown. Form feeds separate pages.
type TextParser struct{}

// Parse splits data on form feed characters.
func (TextParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	return strings.Split(string(data), "\f"), nil
}

// SupportedFormats returns formats this parser handles.
func (TextParser) SupportedFormats() []string {
	return []string{"txt", "md"}
}

type pageParser interface {
	Parse(ctx context.Context, data []byte, filename string) ([]string, error)
	SupportedFormats() []string
}

// Registry dispatches on file extension.
type Registry struct {
	byExt map[string]pageParser
}

// NewRegistry registers parsers by their supported formats. Later parsers
// win on conflicts.
func NewRegistry(parsers ...pageParser) *Registry {
	r := &Registry{byExt: make(map[string]pageParser)}
	for _, p := range parsers {
		for _, f := range p.SupportedFormats() {
			r.byExt[strings.ToLower(f)] = p
		}
	}
	return r
}

// Parse picks the parser for filename's extension.
func (r *Registry) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	p, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	return p.Parse(ctx, data, filename)
}

// SupportedFormats lists every registered extension.
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.byExt))
	for f := range r.byExt {
		formats = append(formats, f)
	}
	return formats
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")]
	return ok
}
