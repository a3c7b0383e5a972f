// Package compose orchestrates one documentation run: structural extraction
// of the macro, LLM enrichment per task, and assembly into the canonical
// document. Fatal steps (macro name, header, section prose) abort the run
// with a typed error; recoverable steps (comments, parameter descriptions)
// degrade and surface warnings instead.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clindoc/sasdoc/doc"
	"github.com/clindoc/sasdoc/llm"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/model"
	"github.com/clindoc/sasdoc/sas"
)

// DefaultCompany is the owning company named in the banner copyright line
// and the default heritage field.
const DefaultCompany = "NewCo"

// defaultWorkers bounds the parameter-description fan-out.
const defaultWorkers = 4

// enrichmentTemperature is shared by every enrichment call. Documentation
// wants reproducible prose, not creativity.
const enrichmentTemperature = 0.2

// Enrichment task names. These key into model.TaskCapabilities and label
// metrics.
const (
	taskHeader   = "header"
	taskComments = "comments"
	taskParams   = "params"
	taskContent  = "content"
	taskDoxygen  = "doxygen"
)

// Completer is the subset of the LLM client the composer depends on.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Request describes one documentation run.
type Request struct {
	// Source is the SAS program text containing the macro definition.
	Source string

	// GenerateHeader prepends the standardized program banner to the
	// working source. Requires one enrichment call; failure is fatal.
	GenerateHeader bool

	// AddComments annotates the working source with inline comments.
	// Failure keeps the original source and the run continues.
	AddComments bool

	// Programmer and Project fill the banner identity fields.
	Programmer string
	Project    string

	// Specs fills the banner's program-specification tuple. Zero fields
	// take the defaults.
	Specs ProgramSpecs

	// Feedback, when non-empty, turns the prose call into a revision of
	// Prior: both ride along as extra conversation turns.
	Feedback string

	// Prior is the wire form of the document being revised.
	Prior map[string]any
}

// Result is the outcome of a run.
type Result struct {
	// Document is the canonical document handed to renderers.
	Document *doc.Document

	// Source is the working source, possibly annotated and
	// header-prefixed.
	Source string

	// Header is the generated banner, empty unless requested.
	Header string

	// ShowSource reports whether the source pane is worth displaying:
	// true iff a header or comments were requested.
	ShowSource bool

	// Warnings carries recoverable step failures
	// (CommentAnnotationError, ParameterDescriptionError).
	Warnings []error
}

// Composer runs documentation requests against an LLM client.
type Composer struct {
	client   Completer
	logger   *slog.Logger
	recorder metrics.Recorder
	company  string
	workers  int
	now      func() time.Time
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Composer) {
		c.recorder = rec
	}
}

// WithCompany sets the owning company named in generated banners.
func WithCompany(name string) Option {
	return func(c *Composer) {
		if name != "" {
			c.company = name
		}
	}
}

// WithWorkers bounds the parameter-description fan-out.
func WithWorkers(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithClock overrides the time source for banner and maintenance dates.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// NewComposer creates a composer backed by the given LLM client.
func NewComposer(client Completer, opts ...Option) *Composer {
	c := &Composer{
		client:   client,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		company:  DefaultCompany,
		workers:  defaultWorkers,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose runs the documentation pipeline for one macro.
//
// Parameter descriptions are generated once, before the banner, because both
// the banner's bracketed parameter lines and the document's Parameters table
// reuse them. Comments run after the banner so annotations see the
// header-prefixed source, and the prose call sees whatever the working
// source has become.
func (c *Composer) Compose(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	name, ok := sas.ExtractMacroName(req.Source)
	if !ok {
		c.recorder.ObservePipeline(metrics.OutcomeError, time.Since(started))
		return nil, ErrNoMacroFound
	}
	c.logger.Info("Composing documentation",
		"macro", name,
		"header", req.GenerateHeader,
		"comments", req.AddComments,
		"revision", req.Feedback != "")

	params := sas.ExtractParameters(req.Source)
	rows, warnings := c.describeParameters(ctx, req.Source, params)

	working := req.Source
	var header string
	if req.GenerateHeader {
		h, err := c.generateHeader(ctx, req, name, rows)
		if err != nil {
			c.recorder.ObservePipeline(metrics.OutcomeError, time.Since(started))
			return nil, &HeaderGenerationError{Err: err}
		}
		header = h
		working = header + "\n" + working
	}

	if req.AddComments {
		annotated, err := c.annotateComments(ctx, working)
		if err != nil {
			c.logger.Warn("Comment annotation failed, keeping original source",
				"macro", name,
				"error", err)
			warnings = append(warnings, &CommentAnnotationError{Err: err})
		} else {
			working = annotated
		}
	}

	document, err := c.generateContent(ctx, req, name, working, rows)
	if err != nil {
		c.recorder.ObservePipeline(metrics.OutcomeError, time.Since(started))
		return nil, &ContentGenerationError{Err: err}
	}

	// The extracted table wins over whatever the model returned for the
	// Parameters section. An empty table drops a model-invented one.
	document.Set(doc.SectionParameters, doc.ParameterTable{
		Headers: doc.DefaultParameterHeaders,
		Rows:    rows,
	})

	c.recorder.ObservePipeline(metrics.OutcomeOK, time.Since(started))
	return &Result{
		Document:   document,
		Source:     working,
		Header:     header,
		ShowSource: req.GenerateHeader || req.AddComments,
		Warnings:   warnings,
	}, nil
}

// headerFields is the JSON shape of the banner enrichment response. Absent
// keys keep the placeholder values.
type headerFields struct {
	Purpose string `json:"purpose"`
	Example string `json:"example"`
}

// generateHeader runs the purpose/example call and renders the banner. The
// banner reuses the already-described parameter rows and the macro calls
// found in the raw source.
func (c *Composer) generateHeader(ctx context.Context, req Request, name string, rows [][]string) (string, error) {
	started := time.Now()
	temp := enrichmentTemperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityForTask(taskHeader)),
		Messages: []llm.Message{
			{Role: "system", Content: HeaderSystemPrompt()},
			{Role: "user", Content: HeaderUserPrompt(req.Source)},
		},
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		c.observe(taskHeader, metrics.OutcomeError, started)
		return "", err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		c.observe(taskHeader, metrics.OutcomeError, started)
		return "", errors.New("no JSON found in response")
	}
	fields := headerFields{
		Purpose: "Purpose not available",
		Example: "Example not available",
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		c.observe(taskHeader, metrics.OutcomeError, started)
		return "", fmt.Errorf("parse header JSON: %w", err)
	}
	c.observe(taskHeader, metrics.OutcomeOK, started)

	return buildBanner(bannerData{
		Company:    c.company,
		Program:    name,
		Programmer: req.Programmer,
		Date:       c.now().Format("2006-01-02"),
		Project:    req.Project,
		Purpose:    fields.Purpose,
		Example:    fields.Example,
		Specs:      req.Specs,
		MacroCalls: sas.FindMacroCalls(req.Source),
		Params:     rows,
	}), nil
}

// annotateComments runs the comment-annotation call and returns the
// annotated source. Any failure, including an empty result, is an error the
// caller recovers from by keeping the original source.
func (c *Composer) annotateComments(ctx context.Context, source string) (string, error) {
	started := time.Now()
	temp := enrichmentTemperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityForTask(taskComments)),
		Messages: []llm.Message{
			{Role: "system", Content: CommentsSystemPrompt()},
			{Role: "user", Content: CommentsUserPrompt(source)},
		},
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		c.observe(taskComments, metrics.OutcomeFallback, started)
		return "", err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		c.observe(taskComments, metrics.OutcomeFallback, started)
		return "", errors.New("no JSON found in response")
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.observe(taskComments, metrics.OutcomeFallback, started)
		return "", fmt.Errorf("parse comments JSON: %w", err)
	}
	if strings.TrimSpace(out.Code) == "" {
		c.observe(taskComments, metrics.OutcomeFallback, started)
		return "", errors.New("annotated source is empty")
	}
	c.observe(taskComments, metrics.OutcomeOK, started)
	return out.Code, nil
}

// generateContent runs the section-prose call and parses the response into
// the canonical document. When feedback is present the prior document and
// the feedback ride along as extra conversation turns.
func (c *Composer) generateContent(ctx context.Context, req Request, name, working string, rows [][]string) (*doc.Document, error) {
	structure := sas.AnalyzeStructure(working)
	messages := []llm.Message{
		{Role: "system", Content: ContentSystemPrompt(structure.DataSteps, structure.ProcSteps, rows)},
		{Role: "user", Content: ContentUserPrompt(working)},
	}
	if req.Feedback != "" {
		if len(req.Prior) > 0 {
			prior, err := json.Marshal(req.Prior)
			if err != nil {
				c.logger.Warn("Prior document not serializable, revising without it", "error", err)
			} else {
				messages = append(messages, llm.Message{Role: "assistant", Content: string(prior)})
			}
		}
		messages = append(messages, llm.Message{Role: "user", Content: RevisionPrompt(req.Feedback)})
	}

	started := time.Now()
	temp := enrichmentTemperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability:  string(model.CapabilityForTask(taskContent)),
		Messages:    messages,
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		c.observe(taskContent, metrics.OutcomeError, started)
		return nil, err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		c.observe(taskContent, metrics.OutcomeError, started)
		return nil, errors.New("no JSON found in response")
	}
	var wire map[string]any
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		c.observe(taskContent, metrics.OutcomeError, started)
		return nil, fmt.Errorf("parse documentation JSON: %w", err)
	}
	c.observe(taskContent, metrics.OutcomeOK, started)

	return doc.FromWire(name, wire), nil
}

// observe records one enrichment step.
func (c *Composer) observe(task, outcome string, started time.Time) {
	c.recorder.ObserveEnrichment(task, outcome, time.Since(started))
}
