// Package render turns a composed document into a downloadable manual.
//
// Five renderers share one contract: the manual title comes from
// doc.Title, sections are walked in canonical order, empty sections are
// skipped, and the Parameters section is emitted as a real table in
// every format that has one. Layout beyond that is per format.
package render

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/clindoc/sasdoc/doc"
)

// Format identifies a manual output format.
type Format string

const (
	// FormatRTF is an editable word-processor document. It is the
	// default when a request names no format or an unknown one.
	FormatRTF Format = "rtf"

	// FormatPDF is a print-ready PDF.
	FormatPDF Format = "pdf"

	// FormatPPTX is a PowerPoint deck, one slide per section.
	FormatPPTX Format = "pptx"

	// FormatHTML is a standalone styled web page.
	FormatHTML Format = "html"

	// FormatMarkdown is plain Markdown for wikis and repositories.
	FormatMarkdown Format = "md"
)

// FormatInfo provides metadata about a manual format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatRTF: {
		Name:        FormatRTF,
		MIMEType:    "application/rtf",
		Extension:   ".rtf",
		Description: "Rich Text Format - editable word-processor manual",
	},
	FormatPDF: {
		Name:        FormatPDF,
		MIMEType:    "application/pdf",
		Extension:   ".pdf",
		Description: "PDF - print-ready manual",
	},
	FormatPPTX: {
		Name:        FormatPPTX,
		MIMEType:    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		Extension:   ".pptx",
		Description: "PowerPoint - one slide per section",
	},
	FormatHTML: {
		Name:        FormatHTML,
		MIMEType:    "text/html",
		Extension:   ".html",
		Description: "HTML - standalone web page",
	},
	FormatMarkdown: {
		Name:        FormatMarkdown,
		MIMEType:    "text/markdown",
		Extension:   ".md",
		Description: "Markdown - plain text for wikis and repositories",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats returns registry entries sorted by name, for format listings.
func Formats() []FormatInfo {
	infos := make([]FormatInfo, 0, len(FormatRegistry))
	for _, info := range FormatRegistry {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Resolve maps a requested format name onto a supported Format. Unknown
// or blank requests resolve to FormatRTF.
func Resolve(requested string) Format {
	f := Format(strings.ToLower(strings.TrimSpace(requested)))
	if _, ok := FormatRegistry[f]; ok {
		return f
	}
	return FormatRTF
}

// ArtifactName is the download filename for a rendered manual.
func ArtifactName(macroName string, info FormatInfo) string {
	return strings.TrimSpace(macroName) + "_User_Manual" + info.Extension
}

// Default preference values, applied when a request leaves a field blank
// or names a value outside the allowed set.
const (
	DefaultFontFamily   = "Arial"
	DefaultFontSize     = 12
	DefaultHeadingStyle = "standard"
	DefaultCodeStyle    = "github"
)

// Allowed preference values. These mirror the choices offered by the
// preference form; anything else is replaced by the default.
var (
	FontFamilies  = []string{"Arial", "Times New Roman", "Helvetica", "Calibri"}
	FontSizes     = []int{10, 11, 12, 14}
	HeadingStyles = []string{"standard", "modern", "classic", "minimal"}
	CodeStyles    = []string{"monokai", "github", "vs-code", "dracula"}
)

// Options carries the caller's formatting preferences. The zero value
// renders with the defaults.
type Options struct {
	// FontFamily is the body font. One of FontFamilies.
	FontFamily string

	// FontSize is the body size in points. One of FontSizes; headings,
	// titles and code derive their sizes from it.
	FontSize int

	// HeadingStyle picks the heading treatment. One of HeadingStyles.
	HeadingStyle string

	// CodeStyle picks the code block palette. One of CodeStyles.
	CodeStyle string
}

// normalized fills blanks and discards out-of-range values. Every
// renderer receives the result, so defaulting happens here and nowhere
// else.
func (o Options) normalized() Options {
	if !containsString(FontFamilies, o.FontFamily) {
		o.FontFamily = DefaultFontFamily
	}
	if !containsInt(FontSizes, o.FontSize) {
		o.FontSize = DefaultFontSize
	}
	if !containsString(HeadingStyles, o.HeadingStyle) {
		o.HeadingStyle = DefaultHeadingStyle
	}
	if !containsString(CodeStyles, o.CodeStyle) {
		o.CodeStyle = DefaultCodeStyle
	}
	return o
}

func containsString(allowed []string, v string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func containsInt(allowed []int, v int) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// RenderError reports a renderer failure. Empty marks the case where
// the renderer finished without producing output, which callers treat
// differently from a hard failure.
type RenderError struct {
	Format Format
	Empty  bool
	Err    error
}

func (e *RenderError) Error() string {
	if e.Empty {
		return fmt.Sprintf("render %s: produced no output", e.Format)
	}
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Render produces the manual bytes for one document. The format is
// resolved through Resolve, so an unknown format renders as RTF. The
// document is validated first; a malformed parameter table fails here,
// before any output is produced.
func Render(document *doc.Document, format Format, opts Options) ([]byte, FormatInfo, error) {
	f := Resolve(string(format))
	info := FormatRegistry[f]

	if err := document.Validate(); err != nil {
		return nil, info, err
	}

	o := opts.normalized()
	var out []byte
	var err error
	switch f {
	case FormatPDF:
		out, err = renderPDF(document, o)
	case FormatPPTX:
		out, err = renderPPTX(document, o)
	case FormatHTML:
		out, err = renderHTML(document, o)
	case FormatMarkdown:
		out, err = renderMarkdown(document, o)
	default:
		out, err = renderRTF(document, o)
	}
	if err != nil {
		return nil, info, &RenderError{Format: f, Err: err}
	}
	if len(out) == 0 {
		return nil, info, &RenderError{Format: f, Empty: true}
	}
	return out, info, nil
}

// RenderFile renders the manual and writes it to path, then verifies
// the artifact actually landed on disk with content.
func RenderFile(document *doc.Document, format Format, opts Options, path string) (FormatInfo, error) {
	out, info, err := Render(document, format, opts)
	if err != nil {
		return info, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return info, fmt.Errorf("write manual: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("verify manual: %w", err)
	}
	if st.Size() == 0 {
		return info, &RenderError{Format: info.Name, Empty: true}
	}
	return info, nil
}
