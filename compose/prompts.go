package compose

import (
	"encoding/json"
	"fmt"

	"github.com/clindoc/sasdoc/doc"
)

// Prompt builders for the enrichment tasks. Every prompt demands a JSON
// response so the reply survives llm.ExtractJSON regardless of provider
// JSON-mode support.

// CommentsSystemPrompt returns the system prompt for source annotation.
func CommentsSystemPrompt() string {
	return `You are a SAS programming expert. Analyze the provided SAS code and return JSON containing comments.
Format your response in JSON as:
{
  "code": "The original code with /* comments */ added above relevant lines"
}`
}

// CommentsUserPrompt returns the user prompt for source annotation.
func CommentsUserPrompt(source string) string {
	return "Please add only critical logical comments precisely to this SAS code and return as JSON:\n" + source
}

// ParameterSystemPrompt returns the system prompt for one parameter
// description.
func ParameterSystemPrompt() string {
	return `You are a SAS macro expert. Generate a very brief description for the given macro parameter.
Consider the parameter name and the macro code context.
Return response in JSON format as: {"description": "parameter description"}`
}

// ParameterUserPrompt returns the user prompt for one parameter description.
func ParameterUserPrompt(name, source string) string {
	return fmt.Sprintf("Generate a brief description for the parameter '%s' in this SAS macro:\n%s", name, source)
}

// HeaderSystemPrompt returns the system prompt for the banner's purpose and
// example fields.
func HeaderSystemPrompt() string {
	return `You are a SAS macro expert. Analyze the provided SAS macro code and return a JSON response containing the macro's purpose and example usage.
Response must be in this exact JSON format:
{
  "purpose": "A clear, concise purpose statement",
  "example": "A practical example of calling the macro"
}`
}

// HeaderUserPrompt returns the user prompt for the banner fields.
func HeaderUserPrompt(source string) string {
	return "Please analyze this SAS macro code and provide a JSON response with purpose and example:\n" + source
}

// DoxygenSystemPrompt returns the system prompt for the Doxygen header
// fields.
func DoxygenSystemPrompt() string {
	return `You are a SAS macro expert. Analyze the provided SAS macro code and return a JSON response containing key information for a Doxygen header.
Response must be in this exact JSON format:
{
  "brief": "One-sentence functional description",
  "details": "Extended markdown-formatted explanation of purpose, key functionalities, and usage context",
  "return": "Explanation of return value/output",
  "warning": "Critical usage constraints if any",
  "note": "Important implementation details if any",
  "todo": "Suggested future enhancements if any"
}`
}

// DoxygenUserPrompt returns the user prompt for the Doxygen header fields.
func DoxygenUserPrompt(source string) string {
	return "Please analyze this SAS macro code and provide a JSON response:\n" + source
}

// ContentSystemPrompt returns the system prompt for the section-prose call.
// The skeleton embeds the deterministically extracted parameter rows and the
// DATA/PROC step counts so the model documents the macro that was actually
// parsed, not one it imagines.
func ContentSystemPrompt(dataSteps, procSteps int, paramRows [][]string) string {
	return fmt.Sprintf(`You are a SAS macro expert. Analyze the provided SAS macro code and return a JSON document with comprehensive documentation.
The macro contains %d DATA steps and %d PROC steps.
IMPORTANT: Include at least two practical usage examples showing different parameter combinations.
Return a valid JSON object following this exact structure:
%s`, dataSteps, procSteps, contentSkeletonJSON(paramRows))
}

// ContentUserPrompt returns the user prompt for the section-prose call.
func ContentUserPrompt(source string) string {
	return "Please analyze this SAS macro code and provide documentation in JSON format:\n" + source
}

// RevisionPrompt returns the follow-up turn applying reviewer feedback to a
// previously generated document.
func RevisionPrompt(feedback string) string {
	return "Please update the JSON documentation with these changes: " + feedback
}

// contentSkeleton mirrors the canonical wire shape. Field order here is the
// section order the model is expected to echo, so it must stay aligned with
// doc.SectionOrder.
type contentSkeleton struct {
	Overview      string           `json:"Overview"`
	Syntax        string           `json:"Syntax"`
	Parameters    skeletonTable    `json:"Parameters"`
	KeyFeatures   skeletonFeatures `json:"Key Features and Functionalities"`
	UsageExamples []string         `json:"Usage Examples"`
	ReturnValues  string           `json:"Return Values"`
	ErrorHandling string           `json:"Error Handling"`
	Summary       string           `json:"Summary"`
}

type skeletonTable struct {
	Headers []string   `json:"table_headers"`
	Rows    [][]string `json:"table_rows"`
}

type skeletonFeatures struct {
	Main        string `json:"main_section"`
	Subsections []any  `json:"subsections"`
}

func contentSkeletonJSON(paramRows [][]string) string {
	if paramRows == nil {
		paramRows = [][]string{}
	}
	skeleton := contentSkeleton{
		Overview: "string describing the macro's purpose",
		Syntax:   "string showing the macro call syntax",
		Parameters: skeletonTable{
			Headers: doc.DefaultParameterHeaders,
			Rows:    paramRows,
		},
		KeyFeatures: skeletonFeatures{
			Main:        "A concise overview of the macro's main features",
			Subsections: []any{},
		},
		UsageExamples: []string{"Example usage of the macro will be provided here"},
	}
	b, err := json.MarshalIndent(skeleton, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
