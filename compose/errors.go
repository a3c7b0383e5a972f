package compose

import (
	"errors"
	"fmt"
)

// ErrNoMacroFound reports source text without a %macro definition. Nothing
// can be documented without one, so the run fails before any enrichment.
var ErrNoMacroFound = errors.New("no SAS macro definition found in source")

// HeaderGenerationError reports a failed banner enrichment call. Fatal to
// the run: a requested header that cannot be produced leaves nothing to
// prepend.
type HeaderGenerationError struct {
	Err error
}

func (e *HeaderGenerationError) Error() string {
	return fmt.Sprintf("generate program header: %v", e.Err)
}

func (e *HeaderGenerationError) Unwrap() error { return e.Err }

// CommentAnnotationError reports a failed comment-annotation call.
// Recoverable: the run keeps the unannotated source and continues, and the
// error is surfaced in the result warnings.
type CommentAnnotationError struct {
	Err error
}

func (e *CommentAnnotationError) Error() string {
	return fmt.Sprintf("annotate source comments: %v", e.Err)
}

func (e *CommentAnnotationError) Unwrap() error { return e.Err }

// ParameterDescriptionError reports a failed description call for one
// parameter. Recoverable per parameter: the row falls back to a template
// description and the batch continues.
type ParameterDescriptionError struct {
	Parameter string
	Err       error
}

func (e *ParameterDescriptionError) Error() string {
	return fmt.Sprintf("describe parameter %q: %v", e.Parameter, e.Err)
}

func (e *ParameterDescriptionError) Unwrap() error { return e.Err }

// ContentGenerationError reports a failed section-prose call. Fatal: the
// document cannot be assembled without it.
type ContentGenerationError struct {
	Err error
}

func (e *ContentGenerationError) Error() string {
	return fmt.Sprintf("generate documentation content: %v", e.Err)
}

func (e *ContentGenerationError) Unwrap() error { return e.Err }

// DoxygenGenerationError reports a failed Doxygen enrichment call. Fatal,
// same class as header generation.
type DoxygenGenerationError struct {
	Err error
}

func (e *DoxygenGenerationError) Error() string {
	return fmt.Sprintf("generate doxygen header: %v", e.Err)
}

func (e *DoxygenGenerationError) Unwrap() error { return e.Err }
