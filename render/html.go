package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/clindoc/sasdoc/doc"
)

// codePalettes maps code style names onto code block colors.
var codePalettes = map[string]struct{ Background, Color string }{
	"github":  {"#f6f8fa", "#24292e"},
	"monokai": {"#272822", "#f8f8f2"},
	"vs-code": {"#1e1e1e", "#d4d4d4"},
	"dracula": {"#282a36", "#f8f8f2"},
}

// headingRules holds the extra CSS each heading style adds to section
// headings. The standard style adds nothing.
var headingRules = map[string]string{
	"standard": "",
	"modern":   "border-bottom: 2px solid #dee2e6; padding-bottom: .25rem;",
	"classic":  "font-variant: small-caps;",
	"minimal":  "font-weight: 500;",
}

const htmlStyle = `
body { font-family: %s, sans-serif; font-size: %dpt; color: #212529; margin: 0; padding: 2rem; background: #fff; }
.preview-content { max-width: 900px; margin: 0 auto; }
h1 { text-align: center; margin-bottom: 1.5rem; }
h2 { margin-top: 1.5rem; margin-bottom: 1rem; %s }
table { width: 100%%; border-collapse: collapse; margin-bottom: 1rem; }
th, td { border: 1px solid #dee2e6; padding: .5rem; text-align: left; vertical-align: top; }
th { background: #f8f9fa; }
td { white-space: pre-line; }
pre { background: %s; color: %s; padding: 1rem; border-radius: 4px; overflow-x: auto; }
pre code { font-family: "Courier New", monospace; }
ul, ol { padding-left: 1.5rem; }
`

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="preview-content">
<h1>{{.Title}}</h1>
{{- range .Sections}}
<h2>{{.Heading}}</h2>
{{- if .Table}}
<div class="table-responsive">
<table>
<thead><tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Table.Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</div>
{{- end}}
{{- range .Code}}
<pre><code>{{.}}</code></pre>
{{- end}}
{{- if .Body}}
{{.Body}}
{{- end}}
{{- end}}
</div>
</body>
</html>
`

var htmlTmpl = template.Must(template.New("manual").Parse(htmlTemplate))

type htmlPage struct {
	Title    string
	Style    template.CSS
	Sections []htmlSection
}

type htmlSection struct {
	Heading string
	Table   *doc.ParameterTable
	Code    []string
	Body    template.HTML
}

// renderHTML writes the manual as a standalone styled page. Syntax and
// usage examples become code blocks, the parameter table a real table,
// and remaining prose goes through goldmark since the classified text
// is markdown-shaped.
func renderHTML(document *doc.Document, opts Options) ([]byte, error) {
	palette := codePalettes[opts.CodeStyle]
	page := htmlPage{
		Title: document.Title(),
		Style: template.CSS(fmt.Sprintf(htmlStyle,
			opts.FontFamily, opts.FontSize, headingRules[opts.HeadingStyle],
			palette.Background, palette.Color)),
	}

	for _, entry := range document.OrderedSections() {
		section := htmlSection{Heading: string(entry.Section)}
		switch content := entry.Content.(type) {
		case doc.ParameterTable:
			table := content
			section.Table = &table
		case doc.ExampleList:
			for _, example := range content {
				if strings.TrimSpace(example) == "" {
					continue
				}
				section.Code = append(section.Code, strings.TrimSpace(example))
			}
		default:
			text := doc.FormatContent(content)
			if entry.Section == doc.SectionSyntax {
				section.Code = append(section.Code, strings.TrimSpace(text))
				break
			}
			body, err := markdownToHTML(text)
			if err != nil {
				return nil, fmt.Errorf("convert %s section: %w", entry.Section, err)
			}
			section.Body = body
		}
		page.Sections = append(page.Sections, section)
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func markdownToHTML(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
