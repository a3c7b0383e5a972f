package doc

import "fmt"

// Wire keys for the JSON object shape produced by enrichment and exchanged
// over the HTTP API.
const (
	wireTableHeaders = "table_headers"
	wireTableRows    = "table_rows"
	wireMainSection  = "main_section"
	wireSubsections  = "subsections"
	wireTitle        = "title"
	wireDescription  = "description"
)

// FromWire builds a Document from the wire object. Keys resolve against the
// canonical sections case-insensitively with trailing colons stripped;
// unknown keys and null values are dropped. The Parameters section expects
// the table shape, every other object-valued section the feature shape.
func FromWire(macroName string, raw map[string]any) *Document {
	d := New(macroName)
	for key, val := range raw {
		sec, ok := ParseSection(key)
		if !ok || val == nil {
			continue
		}
		d.Set(sec, contentFromWire(sec, val))
	}
	return d
}

func contentFromWire(sec Section, v any) SectionContent {
	switch val := v.(type) {
	case string:
		return Text(val)
	case []any:
		list := make(ExampleList, 0, len(val))
		for _, item := range val {
			list = append(list, toString(item))
		}
		return list
	case map[string]any:
		if sec == SectionParameters {
			return tableFromWire(val)
		}
		return featuresFromWire(val)
	default:
		return Text(toString(val))
	}
}

func tableFromWire(m map[string]any) ParameterTable {
	t := ParameterTable{Headers: stringSlice(m[wireTableHeaders])}
	if len(t.Headers) == 0 {
		t.Headers = append([]string(nil), DefaultParameterHeaders...)
	}
	rows, _ := m[wireTableRows].([]any)
	for _, r := range rows {
		t.Rows = append(t.Rows, stringSlice(r))
	}
	return t
}

func featuresFromWire(m map[string]any) FeatureList {
	f := FeatureList{Main: toString(m[wireMainSection])}
	subs, _ := m[wireSubsections].([]any)
	for _, s := range subs {
		sub, ok := s.(map[string]any)
		if !ok {
			continue
		}
		f.Features = append(f.Features, Feature{
			Title:       toString(sub[wireTitle]),
			Description: toString(sub[wireDescription]),
		})
	}
	return f
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, toString(item))
	}
	return out
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// ToWire converts the document to its wire object. Key order is not
// significant on the wire; rendering order always comes from SectionOrder.
func (d *Document) ToWire() map[string]any {
	out := make(map[string]any, len(d.Sections))
	for sec, c := range d.Sections {
		if c == nil {
			continue
		}
		out[string(sec)] = contentToWire(c)
	}
	return out
}

func contentToWire(c SectionContent) any {
	switch v := c.(type) {
	case Text:
		return string(v)
	case ExampleList:
		return []string(v)
	case ParameterTable:
		return map[string]any{
			wireTableHeaders: v.Headers,
			wireTableRows:    v.Rows,
		}
	case FeatureList:
		subs := make([]map[string]string, 0, len(v.Features))
		for _, f := range v.Features {
			subs = append(subs, map[string]string{
				wireTitle:       f.Title,
				wireDescription: f.Description,
			})
		}
		return map[string]any{
			wireMainSection: v.Main,
			wireSubsections: subs,
		}
	default:
		return nil
	}
}
