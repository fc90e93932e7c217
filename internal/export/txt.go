package export

import (
	"fmt"
	"strings"
)

// TXTRenderer renders documents as plain monospace text with padded columns.
type TXTRenderer struct{}

func (TXTRenderer) ContentType() string { return "text/plain; charset=utf-8" }
func (TXTRenderer) Extension() string   { return "txt" }

func (TXTRenderer) Render(doc *Document) ([]byte, error) {
	var b strings.Builder

	b.WriteString(doc.Title + "\n")
	b.WriteString(strings.Repeat("=", len(doc.Title)) + "\n")
	if doc.Subtitle != "" {
		b.WriteString(doc.Subtitle + "\n")
	}
	if doc.Firm != "" {
		b.WriteString(doc.Firm + "\n")
	}
	b.WriteString("Generated " + doc.GeneratedAt.Format("January 2, 2006 15:04 MST") + "\n")

	for _, sec := range doc.Sections {
		b.WriteString("\n")
		if sec.Heading != "" {
			b.WriteString(sec.Heading + "\n")
			b.WriteString(strings.Repeat("-", len(sec.Heading)) + "\n")
		}
		for _, line := range sec.Lines {
			b.WriteString(line + "\n")
		}
		if sec.Table != nil {
			writeTextTable(&b, sec.Table)
		}
	}

	return []byte(b.String()), nil
}

func writeTextTable(b *strings.Builder, table *Table) {
	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		widths[i] = len(col.Name)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if table.Columns[i].Align == AlignRight {
				parts = append(parts, fmt.Sprintf("%*s", widths[i], cell))
			} else {
				parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
	}

	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Name
	}
	writeRow(header)

	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * (len(widths) - 1)
	b.WriteString(strings.Repeat("-", total) + "\n")

	for _, row := range table.Rows {
		writeRow(row)
	}
}
