package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string // if non-empty, check this key exists in parsed JSON
		wantErr bool
	}{
		{
			name:    "plain JSON",
			input:   `{"Overview": "Filters a dataset."}`,
			wantKey: "Overview",
		},
		{
			name:    "markdown code block",
			input:   "```json\n{\"Overview\": \"Filters a dataset.\"}\n```",
			wantKey: "Overview",
		},
		{
			name:    "markdown block with trailing text",
			input:   "```json\n{\"Overview\": \"Filters a dataset.\"}\n```\n\n**Let me know if you need more detail.**",
			wantKey: "Overview",
		},
		{
			name: "JS comments in values",
			input: "```json\n{\n  \"Parameters\": {\n    \"table_rows\": [\n      [\"indata\", \"None\", \"Input dataset\"],          // required\n      [\"outlib\", \"work\", \"Output library\"]  // optional\n    ]\n  }\n}\n```",
			wantKey: "Parameters",
		},
		{
			name: "JS comments and trailing commas",
			input: "```json\n{\n  \"Usage Examples\": [\n    \"%filter(indata=work.a)\",  // basic\n    \"%filter(indata=work.a, debug=Y)\",  // verbose\n  ]\n}\n```",
			wantKey: "Usage Examples",
		},
		{
			name:    "URL in string not stripped",
			input:   `{"url": "http://example.com/path"}`,
			wantKey: "url",
		},
		{
			name:    "URL in string with comment after",
			input:   "{\"url\": \"http://example.com/path\"} // trailing",
			wantKey: "url",
		},
		{
			name: "complex real-world response",
			input: "Here is the documentation you asked for:\n\n```json\n{\n  \"Overview\": \"The %site_filter macro subsets clinical records by site.\",\n  \"Syntax\": \"%site_filter(indata=, site=, outdata=)\",\n  \"Parameters\": {\n    \"table_headers\": [\"Parameter\", \"Default\", \"Description\"],\n    \"table_rows\": [\n      [\"indata\", \"None\", \"Input dataset\"],   // two-level name\n      [\"site\", \"None\", \"Site identifier\"],\n      [\"outdata\", \"None\", \"Output dataset\"]\n    ]\n  }\n}\n```\n\n**Notes:**\n\n1. The macro assumes sorted input.\n2. Site codes are case-sensitive.",
			wantKey: "Overview",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "This is just text with no JSON.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)

			if tt.wantErr {
				if result != "" {
					t.Errorf("expected empty result, got: %s", result)
				}
				return
			}

			if result == "" {
				t.Fatal("expected JSON result, got empty string")
			}

			// Verify it's valid JSON
			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v\nresult: %s", err, result)
			}

			if tt.wantKey != "" {
				if _, ok := parsed[tt.wantKey]; !ok {
					t.Errorf("expected key %q in parsed JSON, got keys: %v", tt.wantKey, keysOf(parsed))
				}
			}
		})
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no comment",
			input:    `  "key": "value",`,
			expected: `  "key": "value",`,
		},
		{
			name:     "trailing comment",
			input:    `  "key": "value",  // a comment`,
			expected: `  "key": "value",`,
		},
		{
			name:     "URL in string preserved",
			input:    `  "url": "http://example.com",`,
			expected: `  "url": "http://example.com",`,
		},
		{
			name:     "URL with trailing comment",
			input:    `  "url": "http://example.com",  // the url`,
			expected: `  "url": "http://example.com",`,
		},
		{
			name:     "whole line comment",
			input:    `  // This is a comment`,
			expected: ``,
		},
		{
			name:     "escaped quote in string",
			input:    `  "path": "a\"b//c",  // comment`,
			expected: `  "path": "a\"b//c",`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripLineComment(tt.input)
			if got != tt.expected {
				t.Errorf("stripLineComment(%q)\ngot:  %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "trailing comma in array",
			input: `{"items": ["one", "two",]}`,
		},
		{
			name:  "trailing comma in object",
			input: `{"a": 1, "b": 2,}`,
		},
		{
			name:  "comments and trailing commas",
			input: "{\n  \"items\": [\n    \"one\",  // first\n    \"two\",  // second\n  ]\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanJSON(tt.input)

			var parsed any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("cleaned JSON is invalid: %v\nresult: %s", err, result)
			}
		})
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
