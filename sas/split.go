package sas

import "strings"

// SplitMacros slices src into its top-level %macro ... %mend blocks. A
// depth counter keeps nested definitions inside their enclosing capture.
// Text between top-level macros is discarded; an unterminated trailing
// macro is returned as captured so far. Captures are whitespace-trimmed.
func SplitMacros(src string) []string {
	var (
		macros  []string
		current strings.Builder
		inMacro bool
		depth   int
	)
	for _, line := range strings.Split(src, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.Contains(lower, "%macro") {
			depth++
			if !inMacro {
				inMacro = true
				current.WriteString(line)
				current.WriteByte('\n')
				continue
			}
		}
		if strings.Contains(lower, "%mend") {
			depth--
			if inMacro {
				current.WriteString(line)
				current.WriteByte('\n')
				if depth == 0 {
					macros = append(macros, strings.TrimSpace(current.String()))
					inMacro = false
					current.Reset()
				}
			}
			continue
		}
		if inMacro {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	if inMacro && current.Len() > 0 {
		macros = append(macros, strings.TrimSpace(current.String()))
	}
	return macros
}
