// Package model provides capability-based model selection for enrichment tasks.
// Instead of hardcoding model names, callers specify capabilities (documentation,
// annotation, fast) and the registry resolves them to configured endpoints with
// fallback chains and per-endpoint health tracking.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "gpt-4o", callers specify "documentation" or "fast".
type Capability string

const (
	// CapabilityDocumentation is for long-form structured output: manual
	// sections, program headers, doxygen blocks.
	CapabilityDocumentation Capability = "documentation"

	// CapabilityAnnotation is for inline code commentary, where the model
	// must return the source verbatim apart from added comments.
	CapabilityAnnotation Capability = "annotation"

	// CapabilityFast is for short single-purpose completions such as
	// one-line parameter descriptions.
	CapabilityFast Capability = "fast"
)

// TaskCapabilities maps enrichment task names to their default capability.
// Used when no explicit capability is specified for a task.
var TaskCapabilities = map[string]Capability{
	"content":  CapabilityDocumentation,
	"header":   CapabilityDocumentation,
	"doxygen":  CapabilityDocumentation,
	"comments": CapabilityAnnotation,
	"params":   CapabilityFast,
}

// CapabilityForTask returns the default capability for a given enrichment task.
// Returns CapabilityDocumentation for unknown tasks.
func CapabilityForTask(task string) Capability {
	if cap, ok := TaskCapabilities[task]; ok {
		return cap
	}
	return CapabilityDocumentation
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityDocumentation, CapabilityAnnotation, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
