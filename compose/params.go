package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clindoc/sasdoc/llm"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/model"
	"github.com/clindoc/sasdoc/sas"
)

// parameterMaxTokens caps the description response. Descriptions are table
// cells, not paragraphs.
const parameterMaxTokens = 60

// fallbackDescription is the row text used when a description call fails.
func fallbackDescription(name string) string {
	return fmt.Sprintf("Parameter %s for the macro", name)
}

// describeParameters fans out one description call per parameter and fans
// the results back in as name/default/description rows in extraction order.
// A failed call falls back to the template description and is reported as a
// warning; it never aborts the batch.
func (c *Composer) describeParameters(ctx context.Context, source string, params []sas.Parameter) ([][]string, []error) {
	if len(params) == 0 {
		return nil, nil
	}

	descs := make([]string, len(params))
	errs := make([]error, len(params))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			desc, err := c.describeParameter(ctx, source, p.Name)
			if err != nil {
				c.logger.Warn("Parameter description failed, using fallback",
					"parameter", p.Name,
					"error", err)
				descs[i] = fallbackDescription(p.Name)
				errs[i] = &ParameterDescriptionError{Parameter: p.Name, Err: err}
				return nil
			}
			descs[i] = desc
			return nil
		})
	}
	// Tasks never return an error; Wait only joins them.
	_ = g.Wait()

	rows := make([][]string, len(params))
	var warnings []error
	for i, p := range params {
		rows[i] = []string{p.Name, p.Default, descs[i]}
		if errs[i] != nil {
			warnings = append(warnings, errs[i])
		}
	}
	return rows, warnings
}

// describeParameter runs one description call. A response that parses but
// carries no description yields the template text without an error, matching
// the tolerance of the other enrichment parsers.
func (c *Composer) describeParameter(ctx context.Context, source, name string) (string, error) {
	started := time.Now()
	temp := enrichmentTemperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityForTask(taskParams)),
		Messages: []llm.Message{
			{Role: "system", Content: ParameterSystemPrompt()},
			{Role: "user", Content: ParameterUserPrompt(name, source)},
		},
		Temperature: &temp,
		MaxTokens:   parameterMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		c.observe(taskParams, metrics.OutcomeFallback, started)
		return "", err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		c.observe(taskParams, metrics.OutcomeFallback, started)
		return "", errors.New("no JSON found in response")
	}
	var out struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.observe(taskParams, metrics.OutcomeFallback, started)
		return "", fmt.Errorf("parse description JSON: %w", err)
	}
	if strings.TrimSpace(out.Description) == "" {
		c.observe(taskParams, metrics.OutcomeFallback, started)
		return fallbackDescription(name), nil
	}
	c.observe(taskParams, metrics.OutcomeOK, started)
	return out.Description, nil
}
