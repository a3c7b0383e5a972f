package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindoc/sasdoc/doc"
	"github.com/clindoc/sasdoc/llm"
	"github.com/clindoc/sasdoc/llm/testutil"
	"github.com/clindoc/sasdoc/metrics"
)

const sampleMacro = `%macro site_filter(site, cutoff=30APR2021);
  data work.filtered;
    set rawdata.demography;
    where site = &site and visit_date <= "&cutoff"d;
  run;

  proc sort data=work.filtered;
    by usubjid;
  run;

  %util_log(step=site_filter);
%mend site_filter;`

const contentJSON = `{
  "Overview": "The site_filter macro subsets demography records to one site.",
  "Syntax": "%site_filter(site=, cutoff=30APR2021)",
  "Parameters": {
    "table_headers": ["Parameter", "Default", "Description"],
    "table_rows": [["site", "None", "model-invented"], ["extra", "1", "model-invented"]]
  },
  "Key Features and Functionalities": {
    "main_section": "Site-level subsetting with a cutoff date.",
    "subsections": [{"title": "Filtering", "description": "Keeps records for the requested site."}]
  },
  "Usage Examples": ["%site_filter(site=101)", "%site_filter(site=102, cutoff=01JAN2022)"],
  "Return Values": "Creates work.filtered in the work library.",
  "Error Handling": "",
  "Summary": "Utility filter for site-level extracts."
}`

var paramNameRe = regexp.MustCompile(`parameter '(\w+)'`)

// stockHandler answers every enrichment task with a plausible canned
// response, routed by capability and system prompt.
func stockHandler(req llm.Request) (*llm.Response, error) {
	system := req.Messages[0].Content
	switch {
	case req.Capability == "fast":
		name := "unknown"
		if m := paramNameRe.FindStringSubmatch(req.Messages[1].Content); m != nil {
			name = m[1]
		}
		return &llm.Response{
			Content: fmt.Sprintf(`{"description": "%s supplied by the caller"}`, name),
			Model:   "gpt-4o-mini",
		}, nil
	case strings.Contains(system, "purpose and example usage"):
		return &llm.Response{
			Content: `{"purpose": "Filters subject records by site.", "example": "%site_filter(site=101)"}`,
			Model:   "gpt-4o",
		}, nil
	case strings.Contains(system, "return JSON containing comments"):
		source := strings.TrimPrefix(req.Messages[1].Content, CommentsUserPrompt(""))
		body, err := json.Marshal(map[string]string{"code": "/* annotated */\n" + source})
		if err != nil {
			return nil, err
		}
		return &llm.Response{Content: string(body), Model: "gpt-4o"}, nil
	case strings.Contains(system, "Doxygen header"):
		return &llm.Response{
			Content: `{"brief": "Filters demography by site.", "details": "Subsets raw demography records to one site before reporting.", "return": "work.filtered dataset"}`,
			Model:   "gpt-4o",
		}, nil
	default:
		return &llm.Response{Content: contentJSON, Model: "gpt-4o"}, nil
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
}

func TestCompose_ContentOnly(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock, WithClock(fixedClock))

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro})
	require.NoError(t, err)

	assert.Equal(t, "site_filter", res.Document.MacroName)
	assert.Equal(t, sampleMacro, res.Source)
	assert.Empty(t, res.Header)
	assert.False(t, res.ShowSource)
	assert.Empty(t, res.Warnings)

	// Two parameter calls plus one content call.
	assert.Equal(t, 3, mock.GetCallCount())

	overview, ok := res.Document.Sections[doc.SectionOverview].(doc.Text)
	require.True(t, ok)
	assert.Contains(t, string(overview), "subsets demography records")

	// The extracted table replaces the model's Parameters section.
	table, ok := res.Document.Sections[doc.SectionParameters].(doc.ParameterTable)
	require.True(t, ok)
	assert.Equal(t, doc.DefaultParameterHeaders, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"site", "None", "site supplied by the caller"}, table.Rows[0])
	assert.Equal(t, []string{"cutoff", "30APR2021", "cutoff supplied by the caller"}, table.Rows[1])
}

func TestCompose_RequestShape(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock, WithClock(fixedClock))

	_, err := c.Compose(context.Background(), Request{Source: sampleMacro})
	require.NoError(t, err)

	var paramReqs, contentReqs []llm.Request
	for _, req := range mock.GetRequests() {
		switch req.Capability {
		case "fast":
			paramReqs = append(paramReqs, req)
		case "documentation":
			contentReqs = append(contentReqs, req)
		default:
			t.Fatalf("unexpected capability %q", req.Capability)
		}
	}
	require.Len(t, paramReqs, 2)
	require.Len(t, contentReqs, 1)

	for _, req := range paramReqs {
		assert.Equal(t, parameterMaxTokens, req.MaxTokens)
		assert.True(t, req.JSONMode)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, enrichmentTemperature, *req.Temperature)
	}

	content := contentReqs[0]
	assert.True(t, content.JSONMode)
	require.NotNil(t, content.Temperature)
	assert.Equal(t, enrichmentTemperature, *content.Temperature)
	assert.Contains(t, content.Messages[0].Content, "The macro contains 1 DATA steps and 1 PROC steps.")
	assert.Contains(t, content.Messages[0].Content, `"site supplied by the caller"`)
	assert.Contains(t, content.Messages[1].Content, sampleMacro)
}

func TestCompose_NoMacro(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{Source: "data work.x; set work.y; run;"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMacroFound)
	assert.Equal(t, 0, mock.GetCallCount())
}

func TestCompose_WithHeader(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock, WithClock(fixedClock))

	res, err := c.Compose(context.Background(), Request{
		Source:         sampleMacro,
		GenerateHeader: true,
		Programmer:     "J. Smith",
		Project:        "Study XYZ",
	})
	require.NoError(t, err)

	assert.True(t, res.ShowSource)
	require.NotEmpty(t, res.Header)
	assert.Equal(t, res.Header+"\n"+sampleMacro, res.Source)

	for _, want := range []string{
		"Copyright: NewCo Company",
		"@Program Name:  site_filter",
		"@Programmer:    J. Smith",
		"@Date:          2026-03-15",
		"@Project:       Study XYZ",
		"@Purpose:       Filters subject records by site.",
		"{Macro Called Example:\n%site_filter(site=101)\n}",
		"[macro/global/Utility/NewCo]",
		"@Macros Used: %util_log",
		"[site/None/site supplied by the caller]",
		"[cutoff/30APR2021/cutoff supplied by the caller]",
		"[2026-03-15/1/J. Smith/Initial Version]",
	} {
		assert.Contains(t, res.Header, want)
	}

	// Params, header, content.
	assert.Equal(t, 4, mock.GetCallCount())

	// The prose call sees the header-prefixed source.
	reqs := mock.GetRequests()
	content := reqs[len(reqs)-1]
	assert.Contains(t, content.Messages[1].Content, "@Program Name:  site_filter")
}

func TestCompose_HeaderFailure(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Messages[0].Content, "purpose and example usage") {
				return nil, errors.New("model unavailable")
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{Source: sampleMacro, GenerateHeader: true})
	require.Error(t, err)

	var headerErr *HeaderGenerationError
	require.ErrorAs(t, err, &headerErr)
	assert.Contains(t, headerErr.Error(), "model unavailable")
}

func TestCompose_HeaderUnparseable(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Messages[0].Content, "purpose and example usage") {
				return &llm.Response{Content: "no json here at all"}, nil
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{Source: sampleMacro, GenerateHeader: true})
	var headerErr *HeaderGenerationError
	require.ErrorAs(t, err, &headerErr)
}

// Missing purpose and example keys fall back to placeholder text rather than
// failing the run.
func TestCompose_HeaderPlaceholders(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Messages[0].Content, "purpose and example usage") {
				return &llm.Response{Content: `{}`}, nil
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock, WithClock(fixedClock))

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro, GenerateHeader: true})
	require.NoError(t, err)
	assert.Contains(t, res.Header, "@Purpose:       Purpose not available")
	assert.Contains(t, res.Header, "Example not available")
}

func TestCompose_CommentsAnnotateSource(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock, WithClock(fixedClock))

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro, AddComments: true})
	require.NoError(t, err)

	assert.True(t, res.ShowSource)
	assert.Empty(t, res.Warnings)
	assert.True(t, strings.HasPrefix(res.Source, "/* annotated */\n"))
	assert.Contains(t, res.Source, "%macro site_filter")

	// The prose call sees the annotated source.
	reqs := mock.GetRequests()
	content := reqs[len(reqs)-1]
	assert.Contains(t, content.Messages[1].Content, "/* annotated */")
}

func TestCompose_CommentFailureKeepsSource(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Messages[0].Content, "return JSON containing comments") {
				return nil, errors.New("quota exceeded")
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock)

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro, AddComments: true})
	require.NoError(t, err)

	assert.Equal(t, sampleMacro, res.Source)
	assert.True(t, res.ShowSource)
	require.Len(t, res.Warnings, 1)

	var commentErr *CommentAnnotationError
	require.ErrorAs(t, res.Warnings[0], &commentErr)
	assert.Contains(t, commentErr.Error(), "quota exceeded")
}

// An annotation response that parses but carries no code is treated the same
// as a failed call.
func TestCompose_CommentEmptyResultKeepsSource(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if strings.Contains(req.Messages[0].Content, "return JSON containing comments") {
				return &llm.Response{Content: `{"code": "  "}`}, nil
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock)

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro, AddComments: true})
	require.NoError(t, err)
	assert.Equal(t, sampleMacro, res.Source)
	require.Len(t, res.Warnings, 1)
	var commentErr *CommentAnnotationError
	assert.ErrorAs(t, res.Warnings[0], &commentErr)
}

func TestCompose_ParameterFallback(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if req.Capability == "fast" && strings.Contains(req.Messages[1].Content, "parameter 'site'") {
				return nil, errors.New("timeout")
			}
			return stockHandler(req)
		},
	}
	c := NewComposer(mock)

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro})
	require.NoError(t, err)

	table := res.Document.Sections[doc.SectionParameters].(doc.ParameterTable)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"site", "None", "Parameter site for the macro"}, table.Rows[0])
	assert.Equal(t, []string{"cutoff", "30APR2021", "cutoff supplied by the caller"}, table.Rows[1])

	require.Len(t, res.Warnings, 1)
	var paramErr *ParameterDescriptionError
	require.ErrorAs(t, res.Warnings[0], &paramErr)
	assert.Equal(t, "site", paramErr.Parameter)
}

func TestCompose_ContentFailure(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if req.Capability == "fast" {
				return stockHandler(req)
			}
			return nil, errors.New("bad gateway")
		},
	}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{Source: sampleMacro})
	require.Error(t, err)

	var contentErr *ContentGenerationError
	require.ErrorAs(t, err, &contentErr)
	assert.Contains(t, contentErr.Error(), "bad gateway")
}

func TestCompose_ContentUnparseable(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if req.Capability == "fast" {
				return stockHandler(req)
			}
			return &llm.Response{Content: `{"Overview": truncated`}, nil
		},
	}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{Source: sampleMacro})
	var contentErr *ContentGenerationError
	require.ErrorAs(t, err, &contentErr)
}

func TestCompose_Revision(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock)

	prior := map[string]any{"Overview": "Old overview text."}
	_, err := c.Compose(context.Background(), Request{
		Source:   sampleMacro,
		Feedback: "Add an example using the cutoff parameter",
		Prior:    prior,
	})
	require.NoError(t, err)

	reqs := mock.GetRequests()
	content := reqs[len(reqs)-1]
	require.Len(t, content.Messages, 4)
	assert.Equal(t, "assistant", content.Messages[2].Role)
	assert.Contains(t, content.Messages[2].Content, "Old overview text.")
	assert.Equal(t, "user", content.Messages[3].Role)
	assert.Equal(t, RevisionPrompt("Add an example using the cutoff parameter"), content.Messages[3].Content)
}

func TestCompose_FeedbackWithoutPrior(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock)

	_, err := c.Compose(context.Background(), Request{
		Source:   sampleMacro,
		Feedback: "Shorten the overview",
	})
	require.NoError(t, err)

	reqs := mock.GetRequests()
	content := reqs[len(reqs)-1]
	require.Len(t, content.Messages, 3)
	assert.Equal(t, "user", content.Messages[2].Role)
	assert.Contains(t, content.Messages[2].Content, "Shorten the overview")
}

// A macro without parameters issues no description calls, and the empty
// deterministic table drops any rows the model invented.
func TestCompose_NoParameters(t *testing.T) {
	src := "%macro touch();\n  data work.stamp;\n    ts = datetime();\n  run;\n%mend touch;"
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	c := NewComposer(mock)

	res, err := c.Compose(context.Background(), Request{Source: src})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetCallCount())
	for _, entry := range res.Document.OrderedSections() {
		assert.NotEqual(t, doc.SectionParameters, entry.Section)
	}
}

func TestCompose_FanOutPreservesOrder(t *testing.T) {
	src := "%macro report(a, b=1, c, d=x, e, f);\n%mend report;"
	delays := map[string]time.Duration{
		"a": 30 * time.Millisecond,
		"b": 5 * time.Millisecond,
		"c": 20 * time.Millisecond,
		"d": time.Millisecond,
		"e": 10 * time.Millisecond,
		"f": 2 * time.Millisecond,
	}
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			if req.Capability != "fast" {
				return stockHandler(req)
			}
			m := paramNameRe.FindStringSubmatch(req.Messages[1].Content)
			if m == nil {
				return nil, errors.New("no parameter name in prompt")
			}
			time.Sleep(delays[m[1]])
			return &llm.Response{Content: fmt.Sprintf(`{"description": "desc-%s"}`, m[1])}, nil
		},
	}
	c := NewComposer(mock, WithWorkers(2))

	res, err := c.Compose(context.Background(), Request{Source: src})
	require.NoError(t, err)

	table := res.Document.Sections[doc.SectionParameters].(doc.ParameterTable)
	require.Len(t, table.Rows, 6)
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, name, table.Rows[i][0])
		assert.Equal(t, "desc-"+name, table.Rows[i][2])
	}
}

// spyRecorder counts observations per task and outcome.
type spyRecorder struct {
	mu         sync.Mutex
	pipeline   map[string]int
	enrichment map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{
		pipeline:   make(map[string]int),
		enrichment: make(map[string]int),
	}
}

func (s *spyRecorder) ObservePipeline(outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline[outcome]++
}

func (s *spyRecorder) ObserveEnrichment(task, outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrichment[task+"/"+outcome]++
}

func (s *spyRecorder) ObserveLLMRequest(string, string, string, time.Duration) {}

func (s *spyRecorder) IncRender(string) {}

var _ metrics.Recorder = (*spyRecorder)(nil)

func TestCompose_RecordsMetrics(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: stockHandler}
	spy := newSpyRecorder()
	c := NewComposer(mock, WithMetrics(spy), WithClock(fixedClock))

	_, err := c.Compose(context.Background(), Request{
		Source:         sampleMacro,
		GenerateHeader: true,
		AddComments:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, spy.pipeline[metrics.OutcomeOK])
	assert.Equal(t, 2, spy.enrichment["params/"+metrics.OutcomeOK])
	assert.Equal(t, 1, spy.enrichment["header/"+metrics.OutcomeOK])
	assert.Equal(t, 1, spy.enrichment["comments/"+metrics.OutcomeOK])
	assert.Equal(t, 1, spy.enrichment["content/"+metrics.OutcomeOK])
}

func TestCompose_RecordsFallbackMetrics(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Handler: func(req llm.Request) (*llm.Response, error) {
			switch {
			case req.Capability == "fast":
				return nil, errors.New("timeout")
			case strings.Contains(req.Messages[0].Content, "return JSON containing comments"):
				return nil, errors.New("timeout")
			default:
				return stockHandler(req)
			}
		},
	}
	spy := newSpyRecorder()
	c := NewComposer(mock, WithMetrics(spy))

	res, err := c.Compose(context.Background(), Request{Source: sampleMacro, AddComments: true})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 3)

	assert.Equal(t, 1, spy.pipeline[metrics.OutcomeOK])
	assert.Equal(t, 2, spy.enrichment["params/"+metrics.OutcomeFallback])
	assert.Equal(t, 1, spy.enrichment["comments/"+metrics.OutcomeFallback])
}
