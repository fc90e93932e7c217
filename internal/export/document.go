// Package export renders report documents to the downloadable formats the
// app offers: PDF, DOCX, and plain text.
package export

import (
	"fmt"
	"time"
)

// Align controls horizontal alignment of a table column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column.
type Column struct {
	Name  string
	Align Align
}

// Table is a rendered grid of string cells. Every row must have one cell
// per column.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Section is a titled block of a document: free-form lines, a table, or both.
type Section struct {
	Heading string
	Lines   []string
	Table   *Table
}

// Document is the format-independent shape of a generated report. The
// report builder produces one of these and a renderer turns it into bytes.
type Document struct {
	Title       string
	Subtitle    string
	Firm        string
	GeneratedAt time.Time
	Sections    []Section
}

// Renderer turns a Document into a byte stream for download.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for a format name: "pdf", "docx", or "txt".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "pdf":
		return PDFRenderer{}, nil
	case "docx":
		return DOCXRenderer{}, nil
	case "txt":
		return TXTRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
