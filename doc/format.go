package doc

import (
	"regexp"
	"strings"
)

var numberedItemRe = regexp.MustCompile(`^\d+\.\s`)

// FormatContent renders a section body to display text. Example lists join
// with blank lines, feature lists become bullets with indented
// descriptions, prose goes through the FormatText line classifier. Tables
// render structurally in every document format; their text form here is a
// plain row dump for contexts without table support.
func FormatContent(c SectionContent) string {
	switch v := c.(type) {
	case nil:
		return ""
	case Text:
		return FormatText(string(v))
	case ExampleList:
		blocks := make([]string, 0, len(v))
		for _, block := range v {
			block = strings.TrimSpace(block)
			if block == "" {
				continue
			}
			blocks = append(blocks, block)
		}
		return strings.Join(blocks, "\n\n")
	case FeatureList:
		var b strings.Builder
		b.WriteString(v.Main)
		b.WriteString("\n")
		for _, f := range v.Features {
			b.WriteString("\n- ")
			b.WriteString(f.Title)
			b.WriteString("\n")
			if f.Description != "" {
				b.WriteString("  ")
				b.WriteString(f.Description)
				b.WriteString("\n")
			}
		}
		return strings.TrimSpace(b.String())
	case ParameterTable:
		lines := make([]string, 0, len(v.Rows))
		for _, row := range v.Rows {
			lines = append(lines, strings.Join(row, "  "))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// FormatText classifies prose line by line. Leading blank lines are
// dropped. A line containing "Example:" or "Usage:" opens an example
// passage: the marker is emitted once behind a blank line, repeated markers
// are swallowed, and a blank line closes the passage. A raw line indented
// four or more spaces is a code line re-issued with exactly four; code
// carries across consecutive indented lines and stops at the first
// non-indented one. "- " bullets and "1. "-style numbered items pass
// through untouched. Everything else is trimmed. Reformatting plain
// classified prose changes nothing.
func FormatText(text string) string {
	var out []string
	inExample := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && len(out) == 0 {
			continue
		}
		if strings.Contains(trimmed, "Example:") || strings.Contains(trimmed, "Usage:") {
			if !inExample {
				out = append(out, "\n"+trimmed)
				inExample = true
			}
			continue
		}
		if trimmed != "" && leadingSpaces(line) >= 4 {
			out = append(out, "    "+trimmed)
			continue
		}
		if strings.HasPrefix(trimmed, "- ") || numberedItemRe.MatchString(trimmed) {
			out = append(out, trimmed)
			continue
		}
		if trimmed == "" {
			inExample = false
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' {
			break
		}
		n++
	}
	return n
}

// CodeLine reports whether a classified line is a code line (the four-space
// prefix FormatText assigns). Renderers use this to pick the code style.
func CodeLine(line string) bool {
	return strings.HasPrefix(line, "    ")
}
