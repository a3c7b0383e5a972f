package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clindoc/sasdoc/llm"
	"github.com/clindoc/sasdoc/metrics"
	"github.com/clindoc/sasdoc/model"
	"github.com/clindoc/sasdoc/sas"
)

// doxygenFields is the JSON shape of the Doxygen enrichment response.
// Absent keys keep the placeholders; warning, note and todo stay empty and
// are then omitted from the block.
type doxygenFields struct {
	Brief   string `json:"brief"`
	Details string `json:"details"`
	Return  string `json:"return"`
	Warning string `json:"warning"`
	Note    string `json:"note"`
	Todo    string `json:"todo"`
}

// GenerateDoxygen produces a Doxygen comment block for the macro in source.
// One enrichment call supplies the prose fields; parameters, datasets and
// macro dependencies come from extraction. Enrichment failure is fatal, the
// same class as header generation.
func (c *Composer) GenerateDoxygen(ctx context.Context, source, programmer string) (string, error) {
	name, ok := sas.ExtractMacroName(source)
	if !ok {
		return "", ErrNoMacroFound
	}
	c.logger.Info("Generating doxygen header", "macro", name)

	params := sas.ExtractParameters(source)
	rows, _ := c.describeParameters(ctx, source, params)

	fields, err := c.generateDoxygenFields(ctx, source)
	if err != nil {
		return "", &DoxygenGenerationError{Err: err}
	}

	return buildDoxygen(doxygenData{
		Macro:      name,
		Programmer: programmer,
		Date:       c.now().Format("2006-01-02"),
		Fields:     *fields,
		Params:     rows,
		Inputs:     sas.DataSources(source),
		Outputs:    sas.DataOutputs(source),
		MacroCalls: sas.FindMacroCalls(source),
	}), nil
}

func (c *Composer) generateDoxygenFields(ctx context.Context, source string) (*doxygenFields, error) {
	started := time.Now()
	temp := enrichmentTemperature
	resp, err := c.client.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityForTask(taskDoxygen)),
		Messages: []llm.Message{
			{Role: "system", Content: DoxygenSystemPrompt()},
			{Role: "user", Content: DoxygenUserPrompt(source)},
		},
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		c.observe(taskDoxygen, metrics.OutcomeError, started)
		return nil, err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		c.observe(taskDoxygen, metrics.OutcomeError, started)
		return nil, errors.New("no JSON found in response")
	}
	fields := doxygenFields{
		Brief:   "Brief description not available",
		Details: "Detailed description not available",
		Return:  "Return value description not available",
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		c.observe(taskDoxygen, metrics.OutcomeError, started)
		return nil, fmt.Errorf("parse doxygen JSON: %w", err)
	}
	c.observe(taskDoxygen, metrics.OutcomeOK, started)
	return &fields, nil
}

// doxygenData collects everything the Doxygen block interpolates.
type doxygenData struct {
	Macro      string
	Programmer string
	Date       string // YYYY-MM-DD
	Fields     doxygenFields
	Params     [][]string // name/default/description rows
	Inputs     []string
	Outputs    []string
	MacroCalls []string // %-prefixed
}

// buildDoxygen renders the comment block.
func buildDoxygen(d doxygenData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "/**\n@file %s.sas\n@brief %s\n\n@details\n%s\n\n", d.Macro, d.Fields.Brief, d.Fields.Details)

	for _, row := range d.Params {
		fmt.Fprintf(&b, "@param %s %s\n", row[0], row[2])
	}

	fmt.Fprintf(&b, "\n@return %s\n@version 1.0\n@author %s\n\n", d.Fields.Return, d.Programmer)

	writeDatasetList(&b, "Data Inputs", d.Inputs)
	writeDatasetList(&b, "Data Outputs", d.Outputs)

	if len(d.MacroCalls) > 0 {
		b.WriteString("<h4>SAS Macros</h4>\n")
		for _, call := range d.MacroCalls {
			fmt.Fprintf(&b, "@li %s.sas\n", strings.TrimPrefix(call, "%"))
		}
		b.WriteString("\n")
	}

	if d.Fields.Warning != "" {
		fmt.Fprintf(&b, "@warning %s\n", d.Fields.Warning)
	}
	if d.Fields.Note != "" {
		fmt.Fprintf(&b, "@note %s\n", d.Fields.Note)
	}
	if d.Fields.Todo != "" {
		fmt.Fprintf(&b, "@todo %s\n", d.Fields.Todo)
	}

	fmt.Fprintf(&b, "\n@maintenance\n- %s: Initial implementation [%s]\n*/", d.Date, d.Programmer)
	return b.String()
}

func writeDatasetList(b *strings.Builder, heading string, datasets []string) {
	if len(datasets) == 0 {
		return
	}
	fmt.Fprintf(b, "<h4>%s</h4>\n", heading)
	for _, ds := range datasets {
		fmt.Fprintf(b, "@li %s\n", ds)
	}
	b.WriteString("\n")
}
