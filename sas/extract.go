// Package sas extracts structural facts from SAS macro source: the macro
// name, declared parameters, invoked macros, dataset references and step
// counts. Everything here is deterministic regex work over raw text; no
// SAS parsing or execution is attempted.
package sas

import (
	"regexp"
	"strings"
)

// NoDefault is the sentinel default for parameters declared without a value.
const NoDefault = "None"

// Parameter is one entry from a %macro statement's parameter list.
type Parameter struct {
	Name    string
	Default string
}

// Structure summarizes the moving parts of a macro body. It seeds the
// enrichment prompts and the generated header.
type Structure struct {
	DataSteps   int
	ProcSteps   int
	MacroCalls  []string
	DataSources []string
	DataOutputs []string
}

var (
	macroNameRe  = regexp.MustCompile(`(?i)%macro\s+(\w+)`)
	macroParamRe = regexp.MustCompile(`(?is)%macro\s+\w+\((.*?)\);`)
	macroCallRe  = regexp.MustCompile(`(?i)%(\w+)\s*\(`)
	dataSourceRe = regexp.MustCompile(`(?i)\b(?:set|from)\s+(\w+\.\w+)`)
	dataOutputRe = regexp.MustCompile(`(?i)\bdata\s+(\w+\.\w+)`)
	dataStepRe   = regexp.MustCompile(`(?im)^\s*data\s+([\w.]+)`)
	procStepRe   = regexp.MustCompile(`(?im)^\s*proc\s+\w+`)
)

// ExtractMacroName returns the name from the first %macro statement in src.
// The second return is false when src contains no macro definition.
func ExtractMacroName(src string) (string, bool) {
	m := macroNameRe.FindStringSubmatch(src)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractParameters returns the parameters declared in the first
// parenthesized %macro signature, in declaration order. The list is split
// on top-level commas only, so values like %str(a,b) stay intact. A
// parameter declared without a value, or with an empty one, carries the
// NoDefault sentinel.
func ExtractParameters(src string) []Parameter {
	m := macroParamRe.FindStringSubmatch(src)
	if m == nil {
		return nil
	}
	var params []Parameter
	for _, part := range splitTopLevel(m[1]) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, def := part, ""
		if i := strings.Index(part, "="); i >= 0 {
			name, def = part[:i], part[i+1:]
		}
		name = strings.TrimSpace(name)
		def = strings.TrimSpace(def)
		if name == "" {
			continue
		}
		if def == "" {
			def = NoDefault
		}
		params = append(params, Parameter{Name: name, Default: def})
	}
	return params
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// FindMacroCalls returns the distinct macro invocations in src, in order of
// first appearance, each prefixed with %.
func FindMacroCalls(src string) []string {
	var calls []string
	seen := make(map[string]bool)
	for _, m := range macroCallRe.FindAllStringSubmatch(src, -1) {
		name := "%" + m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		calls = append(calls, name)
	}
	return calls
}

// DataSources returns the distinct two-level lib.member datasets read via
// set or from clauses, in order of first appearance.
func DataSources(src string) []string {
	return distinctMatches(dataSourceRe, src)
}

// DataOutputs returns the distinct two-level lib.member datasets created by
// data statements, in order of first appearance.
func DataOutputs(src string) []string {
	return distinctMatches(dataOutputRe, src)
}

func distinctMatches(re *regexp.Regexp, src string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

// AnalyzeStructure counts line-anchored data and proc step openings and
// collects the call and dataset lists. data _null_ steps produce no
// dataset and are excluded from the data step count.
func AnalyzeStructure(src string) Structure {
	dataSteps := 0
	for _, m := range dataStepRe.FindAllStringSubmatch(src, -1) {
		if strings.EqualFold(m[1], "_null_") {
			continue
		}
		dataSteps++
	}
	return Structure{
		DataSteps:   dataSteps,
		ProcSteps:   len(procStepRe.FindAllString(src, -1)),
		MacroCalls:  FindMacroCalls(src),
		DataSources: DataSources(src),
		DataOutputs: DataOutputs(src),
	}
}
