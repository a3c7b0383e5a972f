// Package doc defines the canonical documentation model: a closed set of
// manual sections in a fixed order, with each section body carried as a
// tagged variant. Renderers consume this model and nothing else.
package doc

import (
	"fmt"
	"strings"
)

// Section identifies one canonical manual section.
type Section string

// The canonical sections. SectionOrder fixes their rendering order.
const (
	SectionOverview       Section = "Overview"
	SectionSyntax         Section = "Syntax"
	SectionParameters     Section = "Parameters"
	SectionKeyFeatures    Section = "Key Features and Functionalities"
	SectionUsageExamples  Section = "Usage Examples"
	SectionReturnValues   Section = "Return Values"
	SectionErrorHandling  Section = "Error Handling"
	SectionVersionHistory Section = "Version History"
	SectionSummary        Section = "Summary"
)

// SectionOrder is the canonical rendering order. Renderers iterate this
// slice; map iteration order never decides document layout.
var SectionOrder = []Section{
	SectionOverview,
	SectionSyntax,
	SectionParameters,
	SectionKeyFeatures,
	SectionUsageExamples,
	SectionReturnValues,
	SectionErrorHandling,
	SectionVersionHistory,
	SectionSummary,
}

var sectionByKey = func() map[string]Section {
	m := make(map[string]Section, len(SectionOrder))
	for _, s := range SectionOrder {
		m[NormalizeKey(string(s))] = s
	}
	return m
}()

// NormalizeKey reduces a section heading to its lookup form: surrounding
// whitespace and trailing colons stripped, lowercased. "Syntax:", "syntax"
// and "SYNTAX" all address the same section.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), ":"))
}

// ParseSection resolves a raw heading against the canonical set.
func ParseSection(s string) (Section, bool) {
	sec, ok := sectionByKey[NormalizeKey(s)]
	return sec, ok
}

// SectionContent is the closed set of shapes a section body can take.
type SectionContent interface {
	isSectionContent()

	// Empty reports whether renderers should skip the section.
	Empty() bool
}

// Text is free prose. FormatText applies its line classification when the
// section is rendered.
type Text string

func (Text) isSectionContent() {}

// Empty reports whether the text is blank.
func (t Text) Empty() bool { return strings.TrimSpace(string(t)) == "" }

// ExampleList holds usage example blocks.
type ExampleList []string

func (ExampleList) isSectionContent() {}

// Empty reports whether every block is blank.
func (e ExampleList) Empty() bool {
	for _, block := range e {
		if strings.TrimSpace(block) != "" {
			return false
		}
	}
	return true
}

// Feature is one named capability inside a FeatureList.
type Feature struct {
	Title       string
	Description string
}

// FeatureList is introductory prose plus named subsections.
type FeatureList struct {
	Main     string
	Features []Feature
}

func (FeatureList) isSectionContent() {}

// Empty reports whether the list has neither prose nor subsections.
func (f FeatureList) Empty() bool {
	return strings.TrimSpace(f.Main) == "" && len(f.Features) == 0
}

// ParameterTable is the Parameters section body: a header row plus one row
// per parameter.
type ParameterTable struct {
	Headers []string
	Rows    [][]string
}

func (ParameterTable) isSectionContent() {}

// Empty reports whether the table has no rows.
func (t ParameterTable) Empty() bool { return len(t.Rows) == 0 }

// Validate rejects rows whose width differs from the header row. Renderers
// must call this before emitting output; a malformed row is an error, never
// silently truncated or padded.
func (t ParameterTable) Validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("parameter table has no header row")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("parameter table row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

// DefaultParameterHeaders is the header row used when the enrichment
// response omits one.
var DefaultParameterHeaders = []string{"Parameter", "Default", "Description"}

// Document is the canonical model handed to renderers.
type Document struct {
	MacroName string
	Sections  map[Section]SectionContent
}

// New returns an empty document for the named macro.
func New(macroName string) *Document {
	return &Document{
		MacroName: macroName,
		Sections:  make(map[Section]SectionContent),
	}
}

// Title returns the manual title.
func (d *Document) Title() string {
	if strings.TrimSpace(d.MacroName) == "" {
		return "SAS Macro Documentation"
	}
	return d.MacroName + " User Manual"
}

// Set stores content for a section, replacing any previous value.
func (d *Document) Set(sec Section, c SectionContent) {
	if d.Sections == nil {
		d.Sections = make(map[Section]SectionContent)
	}
	d.Sections[sec] = c
}

// SectionEntry pairs a section with its non-empty content.
type SectionEntry struct {
	Section Section
	Content SectionContent
}

// OrderedSections walks the canonical order, skipping absent and empty
// sections.
func (d *Document) OrderedSections() []SectionEntry {
	var entries []SectionEntry
	for _, sec := range SectionOrder {
		c, ok := d.Sections[sec]
		if !ok || c == nil || c.Empty() {
			continue
		}
		entries = append(entries, SectionEntry{Section: sec, Content: c})
	}
	return entries
}

// Validate checks sections that carry structural constraints.
func (d *Document) Validate() error {
	if t, ok := d.Sections[SectionParameters].(ParameterTable); ok {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("section %s: %w", SectionParameters, err)
		}
	}
	return nil
}
