// Package metrics defines the instrumentation surface for the
// documentation pipeline. Call sites record unconditionally against the
// Recorder interface; the no-op implementation keeps unconfigured paths
// free of branches, and the Prometheus implementation binds the same
// surface to a registry.
package metrics

import "time"

// Outcome labels shared by recorders.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	// ObservePipeline records one full documentation run.
	ObservePipeline(outcome string, d time.Duration)

	// ObserveEnrichment records one LLM-backed enrichment step
	// (header, comments, parameter description, sections, doxygen).
	ObserveEnrichment(task, outcome string, d time.Duration)

	// ObserveLLMRequest records a completed LLM exchange after retry
	// and fallback resolution.
	ObserveLLMRequest(capability, model, outcome string, d time.Duration)

	// IncRender counts a rendered artifact by format.
	IncRender(format string)
}

// NoopRecorder discards all measurements.
type NoopRecorder struct{}

// ObservePipeline implements Recorder.
func (NoopRecorder) ObservePipeline(string, time.Duration) {}

// ObserveEnrichment implements Recorder.
func (NoopRecorder) ObserveEnrichment(string, string, time.Duration) {}

// ObserveLLMRequest implements Recorder.
func (NoopRecorder) ObserveLLMRequest(string, string, string, time.Duration) {}

// IncRender implements Recorder.
func (NoopRecorder) IncRender(string) {}

var _ Recorder = NoopRecorder{}
