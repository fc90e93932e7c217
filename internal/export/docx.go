package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DOCXRenderer renders documents as minimal WordprocessingML packages.
// The output carries only the parts Word requires to open the file:
// [Content_Types].xml, the package relationships, and word/document.xml.
type DOCXRenderer struct{}

func (DOCXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (DOCXRenderer) Extension() string { return "docx" }

func (r DOCXRenderer) Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", r.documentXML(doc)},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func (DOCXRenderer) documentXML(doc *Document) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writePara(&b, doc.Title, paraOpts{bold: true, size: 32})
	if doc.Subtitle != "" {
		writePara(&b, doc.Subtitle, paraOpts{size: 22})
	}
	if doc.Firm != "" {
		writePara(&b, doc.Firm, paraOpts{size: 22})
	}
	writePara(&b, "Generated "+doc.GeneratedAt.Format("January 2, 2006 15:04 MST"), paraOpts{size: 20})

	for _, sec := range doc.Sections {
		if sec.Heading != "" {
			writePara(&b, sec.Heading, paraOpts{bold: true, size: 26})
		}
		for _, line := range sec.Lines {
			writePara(&b, line, paraOpts{size: 22})
		}
		if sec.Table != nil {
			writeDocxTable(&b, sec.Table)
		}
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

type paraOpts struct {
	bold bool
	size int // half-points
}

func writePara(b *strings.Builder, text string, o paraOpts) {
	b.WriteString(`<w:p><w:r><w:rPr>`)
	if o.bold {
		b.WriteString(`<w:b/>`)
	}
	if o.size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, o.size)
	}
	b.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeDocxTable(b *strings.Builder, table *Table) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4"/><w:bottom w:val="single" w:sz="4"/>` +
		`<w:left w:val="single" w:sz="4"/><w:right w:val="single" w:sz="4"/>` +
		`<w:insideH w:val="single" w:sz="4"/><w:insideV w:val="single" w:sz="4"/>` +
		`</w:tblBorders></w:tblPr>`)

	b.WriteString(`<w:tr>`)
	for _, col := range table.Columns {
		writeDocxCell(b, col.Name, col.Align, true)
	}
	b.WriteString(`</w:tr>`)

	for _, row := range table.Rows {
		b.WriteString(`<w:tr>`)
		for i, cell := range row {
			align := AlignLeft
			if i < len(table.Columns) {
				align = table.Columns[i].Align
			}
			writeDocxCell(b, cell, align, false)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

func writeDocxCell(b *strings.Builder, text string, align Align, bold bool) {
	b.WriteString(`<w:tc><w:p><w:pPr>`)
	if align == AlignRight {
		b.WriteString(`<w:jc w:val="right"/>`)
	}
	b.WriteString(`</w:pPr><w:r><w:rPr>`)
	if bold {
		b.WriteString(`<w:b/>`)
	}
	b.WriteString(`<w:sz w:val="18"/></w:rPr><w:t xml:space="preserve">`)
	xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r></w:p></w:tc>`)
}
