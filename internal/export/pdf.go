package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer renders documents to A4 portrait PDF.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

func (PDFRenderer) Render(doc *Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, doc.Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	if doc.Subtitle != "" {
		pdf.CellFormat(0, 5, doc.Subtitle, "", 1, "L", false, 0, "")
	}
	if doc.Firm != "" {
		pdf.CellFormat(0, 5, doc.Firm, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Generated "+doc.GeneratedAt.Format("January 2, 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	for _, sec := range doc.Sections {
		if sec.Heading != "" {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 8, sec.Heading, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range sec.Lines {
			pdf.MultiCell(0, 5, line, "", "L", false)
		}
		if sec.Table != nil {
			renderPDFTable(pdf, sec.Table)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPDFTable(pdf *gofpdf.Fpdf, table *Table) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right
	colW := usable / float64(len(table.Columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for _, col := range table.Columns {
		pdf.CellFormat(colW, 7, col.Name, "1", 0, pdfAlign(col.Align), true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range table.Rows {
		for i, cell := range row {
			align := "L"
			if i < len(table.Columns) {
				align = pdfAlign(table.Columns[i].Align)
			}
			pdf.CellFormat(colW, 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func pdfAlign(a Align) string {
	if a == AlignRight {
		return "R"
	}
	return "L"
}
