package render

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/clindoc/sasdoc/doc"
)

// pdfFonts maps preference families onto the PDF core fonts. Calibri
// has no core equivalent and renders as Arial.
var pdfFonts = map[string]string{
	"Arial":           "Arial",
	"Helvetica":       "Helvetica",
	"Times New Roman": "Times",
	"Calibri":         "Arial",
}

// Column width fractions for the three-column parameter table.
var pdfColumnFractions = []float64{0.15, 0.12, 0.50}

const pdfCellPad = 4

type pdfRenderer struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	font string
	size float64
}

func renderPDF(document *doc.Document, opts Options) ([]byte, error) {
	p := fpdf.New("P", "pt", "Letter", "")
	p.SetMargins(72, 72, 72)
	p.SetAutoPageBreak(true, 72)
	r := &pdfRenderer{
		pdf:  p,
		tr:   p.UnicodeTranslatorFromDescriptor(""),
		font: pdfFonts[opts.FontFamily],
		size: float64(opts.FontSize),
	}

	p.AddPage()
	r.title(document.Title())
	for _, entry := range document.OrderedSections() {
		r.heading(string(entry.Section))
		if table, ok := entry.Content.(doc.ParameterTable); ok {
			r.table(table)
		} else {
			r.body(doc.FormatContent(entry.Content))
		}
		p.Ln(r.size * 0.4)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) title(text string) {
	r.pdf.SetFont(r.font, "B", r.size+8)
	r.pdf.CellFormat(0, (r.size+8)*1.2, r.tr(text), "", 1, "C", false, 0, "")
	r.pdf.Ln(r.size * 0.8)
}

func (r *pdfRenderer) heading(text string) {
	r.pdf.SetFont(r.font, "B", r.size+4)
	r.pdf.CellFormat(0, (r.size+4)*1.2, r.tr(text), "", 1, "L", false, 0, "")
	r.pdf.Ln(r.size * 0.3)
}

// body lays out classified text line by line: blank lines become
// paragraph gaps, indented lines render as monospace code with a
// half-inch indent, everything else wraps as a normal paragraph.
func (r *pdfRenderer) body(text string) {
	lineH := r.size * 1.1
	left, _, right, _ := r.pdf.GetMargins()
	pageW, _ := r.pdf.GetPageSize()
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			r.pdf.Ln(r.size * 0.5)
			continue
		}
		if doc.CodeLine(line) {
			r.pdf.SetFont("Courier", "", r.size-2)
			r.pdf.SetX(left + 36)
			r.pdf.MultiCell(pageW-left-right-36, lineH, r.tr(trimmed), "", "L", false)
			continue
		}
		r.pdf.SetFont(r.font, "", r.size)
		r.pdf.MultiCell(0, lineH, r.tr(trimmed), "", "L", false)
	}
}

func (r *pdfRenderer) table(table doc.ParameterTable) {
	left, _, right, bottom := r.pdf.GetMargins()
	pageW, pageH := r.pdf.GetPageSize()
	content := pageW - left - right

	cols := len(table.Headers)
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = content / float64(cols)
	}
	if cols == len(pdfColumnFractions) {
		for i, frac := range pdfColumnFractions {
			widths[i] = content * frac
		}
	}

	limitY := pageH - bottom
	r.pdf.SetFont(r.font, "B", r.size)
	r.tableRow(table.Headers, widths, true, limitY)
	r.pdf.SetFont(r.font, "", r.size-1)
	for _, row := range table.Rows {
		r.tableRow(row, widths, false, limitY)
	}
}

// tableRow draws one bordered row, sized to the tallest wrapped cell.
func (r *pdfRenderer) tableRow(cells []string, widths []float64, header bool, limitY float64) {
	lineH := r.size * 1.1
	split := make([][]string, len(cells))
	lines := 1
	for i, cell := range cells {
		split[i] = r.pdf.SplitText(r.tr(cell), widths[i]-2*pdfCellPad)
		if len(split[i]) > lines {
			lines = len(split[i])
		}
	}
	rowH := float64(lines)*lineH + 2*pdfCellPad

	if r.pdf.GetY()+rowH > limitY {
		r.pdf.AddPage()
	}
	left, _, _, _ := r.pdf.GetMargins()
	y := r.pdf.GetY()
	x := left
	for i := range cells {
		style := "D"
		if header {
			r.pdf.SetFillColor(211, 211, 211)
			style = "FD"
		}
		r.pdf.Rect(x, y, widths[i], rowH, style)
		r.pdf.SetXY(x+pdfCellPad, y+pdfCellPad)
		for _, line := range split[i] {
			r.pdf.CellFormat(widths[i]-2*pdfCellPad, lineH, line, "", 2, "L", false, 0, "")
		}
		x += widths[i]
	}
	r.pdf.SetXY(left, y+rowH)
}
