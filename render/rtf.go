package render

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/clindoc/sasdoc/doc"
)

// Usable page width in twips: US Letter (12240) minus one-inch margins.
const rtfPageWidth = 9360

// rtfWriter assembles an RTF document. Sizes are tracked in points and
// emitted in half-points as RTF expects.
type rtfWriter struct {
	sb   strings.Builder
	size int
}

func renderRTF(document *doc.Document, opts Options) ([]byte, error) {
	w := &rtfWriter{size: opts.FontSize}
	w.writeHeader(opts.FontFamily)
	w.writeTitle(document.Title())
	for _, entry := range document.OrderedSections() {
		w.writeHeading(string(entry.Section))
		if table, ok := entry.Content.(doc.ParameterTable); ok {
			w.writeTable(table)
			continue
		}
		w.writeBody(doc.FormatContent(entry.Content))
	}
	w.sb.WriteString("}")
	return []byte(w.sb.String()), nil
}

// halfPoints converts the body size plus a delta into RTF font units.
func (w *rtfWriter) halfPoints(delta int) int { return (w.size + delta) * 2 }

func (w *rtfWriter) writeHeader(family string) {
	w.sb.WriteString("{\\rtf1\\ansi\\ansicpg1252\\deff0\n")
	class := "fswiss"
	if family == "Times New Roman" {
		class = "froman"
	}
	fmt.Fprintf(&w.sb, "{\\fonttbl{\\f0\\%s %s;}{\\f1\\fmodern Courier New;}}\n", class, family)
	fmt.Fprintf(&w.sb, "\\f0\\fs%d\n", w.halfPoints(0))
}

func (w *rtfWriter) writeTitle(title string) {
	fmt.Fprintf(&w.sb, "{\\pard\\qc\\sa240\\b\\fs%d %s\\par}\n", w.halfPoints(8), rtfEscape(title))
}

func (w *rtfWriter) writeHeading(name string) {
	fmt.Fprintf(&w.sb, "{\\pard\\sb240\\sa120\\b\\fs%d %s\\par}\n", w.halfPoints(4), rtfEscape(name))
}

// writeBody emits one paragraph per non-blank line. Indented lines keep
// the code treatment: monospace, slightly smaller, half-inch indent.
func (w *rtfWriter) writeBody(text string) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if doc.CodeLine(line) {
			fmt.Fprintf(&w.sb, "{\\pard\\li720\\sb60\\sa60\\f1\\fs%d %s\\par}\n",
				w.halfPoints(-2), rtfEscape(strings.TrimSpace(line)))
			continue
		}
		fmt.Fprintf(&w.sb, "{\\pard\\sb60\\sa60 %s\\par}\n", rtfEscape(strings.TrimSpace(line)))
	}
}

func (w *rtfWriter) writeTable(table doc.ParameterTable) {
	stops := rtfColumnStops(len(table.Headers))
	w.writeTableRow(table.Headers, stops, true)
	for _, row := range table.Rows {
		w.writeTableRow(row, stops, false)
	}
}

// rtfColumnStops returns cumulative cell boundaries in twips. The usual
// three-column table gives the description column the most room; any
// other width divides the page evenly.
func rtfColumnStops(cols int) []int {
	fractions := make([]float64, cols)
	for i := range fractions {
		fractions[i] = 1 / float64(cols)
	}
	if cols == 3 {
		fractions = []float64{0.25, 0.20, 0.55}
	}
	stops := make([]int, cols)
	total := 0.0
	for i, f := range fractions {
		total += f
		stops[i] = int(total * rtfPageWidth)
	}
	return stops
}

func (w *rtfWriter) writeTableRow(cells []string, stops []int, header bool) {
	w.sb.WriteString("\\trowd\\trgaph108")
	for _, stop := range stops {
		w.sb.WriteString("\\clbrdrt\\brdrs\\brdrw10\\clbrdrl\\brdrs\\brdrw10\\clbrdrb\\brdrs\\brdrw10\\clbrdrr\\brdrs\\brdrw10")
		fmt.Fprintf(&w.sb, "\\cellx%d", stop)
	}
	w.sb.WriteString("\n")
	for _, cell := range cells {
		if header {
			fmt.Fprintf(&w.sb, "\\intbl{\\b\\fs%d %s}\\cell ", w.halfPoints(2), rtfEscape(cell))
		} else {
			fmt.Fprintf(&w.sb, "\\intbl %s\\cell ", rtfEscape(cell))
		}
	}
	w.sb.WriteString("\\row\n")
}

// rtfEscape escapes control characters and encodes anything outside
// ASCII as RTF unicode escapes, surrogate pairs included.
func rtfEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x80:
			b.WriteRune(r)
		default:
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "\\u%d?", int16(u))
			}
		}
	}
	return b.String()
}
