package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	pipelineDuration   *prom.HistogramVec
	enrichmentDuration *prom.HistogramVec
	llmDuration        *prom.HistogramVec
	renders            *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics.
// A nil registry gets a private one, which keeps tests isolated from the
// default registry. Register on a given registry at most once.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pipelineDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sasdoc",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of full documentation runs",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		enrichmentDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sasdoc",
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of individual enrichment steps",
			Buckets:   prom.DefBuckets,
		}, []string{"task", "outcome"}),
		llmDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sasdoc",
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM exchanges after retry and fallback",
			Buckets:   prom.DefBuckets,
		}, []string{"capability", "model", "outcome"}),
		renders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sasdoc",
			Name:      "renders_total",
			Help:      "Rendered artifacts by format",
		}, []string{"format"}),
	}
	reg.MustRegister(pr.pipelineDuration, pr.enrichmentDuration, pr.llmDuration, pr.renders)
	return pr
}

// ObservePipeline implements Recorder.
func (p *PrometheusRecorder) ObservePipeline(outcome string, d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveEnrichment implements Recorder.
func (p *PrometheusRecorder) ObserveEnrichment(task, outcome string, d time.Duration) {
	if p == nil || p.enrichmentDuration == nil {
		return
	}
	p.enrichmentDuration.WithLabelValues(task, outcome).Observe(d.Seconds())
}

// ObserveLLMRequest implements Recorder.
func (p *PrometheusRecorder) ObserveLLMRequest(capability, model, outcome string, d time.Duration) {
	if p == nil || p.llmDuration == nil {
		return
	}
	p.llmDuration.WithLabelValues(capability, model, outcome).Observe(d.Seconds())
}

// IncRender implements Recorder.
func (p *PrometheusRecorder) IncRender(format string) {
	if p == nil || p.renders == nil {
		return
	}
	p.renders.WithLabelValues(format).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
