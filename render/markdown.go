package render

import (
	"fmt"
	"strings"

	"github.com/clindoc/sasdoc/doc"
)

// renderMarkdown writes the manual as plain Markdown. Syntax and usage
// examples become fenced SAS code blocks, the parameter table a pipe
// table. Formatting preferences do not apply to plain text output.
func renderMarkdown(document *doc.Document, _ Options) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", document.Title())
	for _, entry := range document.OrderedSections() {
		fmt.Fprintf(&b, "## %s\n\n", entry.Section)
		switch content := entry.Content.(type) {
		case doc.ParameterTable:
			writeMarkdownTable(&b, content)
		case doc.ExampleList:
			for _, example := range content {
				if strings.TrimSpace(example) == "" {
					continue
				}
				writeFence(&b, example)
			}
		default:
			if entry.Section == doc.SectionSyntax {
				writeFence(&b, doc.FormatContent(content))
				continue
			}
			b.WriteString(doc.FormatContent(content))
			b.WriteString("\n\n")
		}
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

func writeFence(b *strings.Builder, code string) {
	b.WriteString("```sas\n")
	b.WriteString(strings.TrimSpace(code))
	b.WriteString("\n```\n\n")
}

func writeMarkdownTable(b *strings.Builder, table doc.ParameterTable) {
	writeMarkdownRow(b, table.Headers)
	rule := make([]string, len(table.Headers))
	for i := range rule {
		rule[i] = "---"
	}
	writeMarkdownRow(b, rule)
	for _, row := range table.Rows {
		writeMarkdownRow(b, row)
	}
	b.WriteString("\n")
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		b.WriteString(" ")
		b.WriteString(markdownCell(cell))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// markdownCell keeps a cell on one table row: pipes are escaped and
// embedded newlines collapse to spaces.
func markdownCell(cell string) string {
	cell = strings.ReplaceAll(cell, "|", "\\|")
	return strings.ReplaceAll(cell, "\n", " ")
}
