package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/clindoc/sasdoc/compose"
	"github.com/clindoc/sasdoc/doc"
	"github.com/clindoc/sasdoc/events"
	"github.com/clindoc/sasdoc/render"
)

// ----------------------------------------------------------------------------
// POST /api/doc/preview
// ----------------------------------------------------------------------------

// PreviewRequest is the request body for POST /api/doc/preview.
type PreviewRequest struct {
	// Code is the SAS program text containing the macro definition.
	Code string `json:"code"`

	// GenerateHeader prepends the standardized program banner.
	GenerateHeader bool `json:"generate_header"`

	// AddComments annotates the source with inline comments.
	AddComments bool `json:"add_comments"`

	// ProgrammerName and ProjectName fill the banner identity fields.
	// Blank fields take the server defaults.
	ProgrammerName string `json:"programmer_name"`
	ProjectName    string `json:"project_name"`

	// ProgramSpecs fills the banner's program-specification tuple.
	ProgramSpecs compose.ProgramSpecs `json:"program_specs"`

	// Feedback, when non-empty, revises Prior instead of documenting
	// from scratch.
	Feedback string `json:"feedback,omitempty"`

	// Prior is the wire-form document being revised.
	Prior map[string]any `json:"prior,omitempty"`
}

// PreviewResponse is the response body for POST /api/doc/preview.
type PreviewResponse struct {
	// MacroName is the name extracted from the %macro statement.
	MacroName string `json:"macro_name"`

	// Content is the wire-form document, section name to content.
	Content map[string]any `json:"content"`

	// Code is the working source, possibly annotated and
	// header-prefixed.
	Code string `json:"code"`

	// ShowCode reports whether the source pane is worth displaying.
	ShowCode bool `json:"show_code"`

	// Header is the generated banner, empty unless requested.
	Header string `json:"header,omitempty"`

	// Warnings lists recoverable enrichment failures. The document is
	// still complete; degraded steps fell back to extractor output.
	Warnings []string `json:"warnings,omitempty"`
}

// handlePreview runs the full pipeline and returns the document in wire
// form without rendering an artifact.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: code")
		return
	}

	creq := compose.Request{
		Source:         req.Code,
		GenerateHeader: req.GenerateHeader,
		AddComments:    req.AddComments,
		Programmer:     orDefault(req.ProgrammerName, s.defaults.Programmer),
		Project:        orDefault(req.ProjectName, s.defaults.Project),
		Specs:          mergeSpecs(req.ProgramSpecs, s.defaults.Specs),
		Feedback:       req.Feedback,
		Prior:          req.Prior,
	}

	result, err := s.composer.Compose(r.Context(), creq)
	if err != nil {
		s.logger.Error("Preview failed",
			"request_id", RequestID(r.Context()),
			"error", err)
		status, msg := composeErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	resp := PreviewResponse{
		MacroName: result.Document.MacroName,
		Content:   result.Document.ToWire(),
		Code:      result.Source,
		ShowCode:  result.ShowSource,
		Header:    result.Header,
		Warnings:  warningStrings(result.Warnings),
	}

	writeJSON(w, http.StatusOK, resp)
}

// composeErrorStatus maps a pipeline error to a status code and a
// client-safe message.
func composeErrorStatus(err error) (int, string) {
	if errors.Is(err, compose.ErrNoMacroFound) {
		return http.StatusUnprocessableEntity, "No valid SAS macro found in the code"
	}

	var headerErr *compose.HeaderGenerationError
	var contentErr *compose.ContentGenerationError
	var doxygenErr *compose.DoxygenGenerationError
	if errors.As(err, &headerErr) || errors.As(err, &contentErr) || errors.As(err, &doxygenErr) {
		return http.StatusBadGateway, "Documentation generation failed"
	}

	return http.StatusInternalServerError, "Internal server error"
}

// warningStrings flattens recoverable step failures for the response.
func warningStrings(warnings []error) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.Error()
	}
	return out
}

// ----------------------------------------------------------------------------
// POST /api/doc/render
// ----------------------------------------------------------------------------

// RenderRequest is the request body for POST /api/doc/render.
type RenderRequest struct {
	// MacroName names the documented macro; it also names the artifact.
	MacroName string `json:"macro_name"`

	// Content is the wire-form document from a preview response.
	Content map[string]any `json:"content"`

	// Format selects the output renderer. Unknown values fall back to
	// rtf.
	Format string `json:"format"`

	// Preferences tunes renderer typography.
	Preferences RenderPreferences `json:"preferences"`
}

// RenderPreferences is the typography section of a render request.
type RenderPreferences struct {
	FontFamily   string `json:"font_family"`
	FontSize     int    `json:"font_size"`
	HeadingStyle string `json:"heading_style"`
	CodeStyle    string `json:"code_style"`
}

// options converts wire preferences to renderer options, filling blanks
// from the server defaults.
func (p RenderPreferences) options(defaults render.Options) render.Options {
	opts := render.Options{
		FontFamily:   orDefault(p.FontFamily, defaults.FontFamily),
		FontSize:     p.FontSize,
		HeadingStyle: orDefault(p.HeadingStyle, defaults.HeadingStyle),
		CodeStyle:    orDefault(p.CodeStyle, defaults.CodeStyle),
	}
	if opts.FontSize == 0 {
		opts.FontSize = defaults.FontSize
	}
	return opts
}

// handleRender turns a wire-form document into a downloadable artifact.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.MacroName == "" || len(req.Content) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required documentation content")
		return
	}

	document := doc.FromWire(req.MacroName, req.Content)
	format := render.Resolve(req.Format)
	opts := req.Preferences.options(s.defaults.Preferences)

	started := s.now()
	out, info, err := render.Render(document, format, opts)
	if err != nil {
		var rerr *render.RenderError
		if errors.As(err, &rerr) {
			s.logger.Error("Render failed",
				"request_id", RequestID(r.Context()),
				"macro", req.MacroName,
				"format", string(format),
				"error", err)
			writeError(w, http.StatusInternalServerError, "Document generation failed")
			return
		}
		// Anything else is document validation.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	elapsed := s.now().Sub(started)

	s.recorder.IncRender(string(info.Name))
	s.publishGenerated(r, req.MacroName, info, len(out), elapsed.Milliseconds())

	filename := render.ArtifactName(req.MacroName, info)
	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("Failed to write artifact",
			"request_id", RequestID(r.Context()),
			"error", err)
	}
}

// publishGenerated emits a generation event. Failures are logged, never
// surfaced: the artifact already went out.
func (s *Server) publishGenerated(r *http.Request, macro string, info render.FormatInfo, size int, durationMS int64) {
	err := s.publisher.DocumentGenerated(events.DocumentGenerated{
		RequestID:  RequestID(r.Context()),
		Macro:      macro,
		Format:     string(info.Name),
		Bytes:      size,
		DurationMS: durationMS,
	})
	if err != nil {
		s.logger.Warn("Failed to publish generation event",
			"request_id", RequestID(r.Context()),
			"macro", macro,
			"error", err)
	}
}

// ----------------------------------------------------------------------------
// POST /api/doc/doxygen
// ----------------------------------------------------------------------------

// DoxygenRequest is the request body for POST /api/doc/doxygen.
type DoxygenRequest struct {
	// Code is the SAS program text to summarize.
	Code string `json:"code"`

	// ProgrammerName fills the author field. Blank takes the server
	// default.
	ProgrammerName string `json:"programmer_name"`
}

// DoxygenResponse is the response body for POST /api/doc/doxygen.
type DoxygenResponse struct {
	// Header is the Doxygen-style comment block.
	Header string `json:"header"`
}

// handleDoxygen generates a Doxygen-style file header for the given
// source.
func (s *Server) handleDoxygen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req DoxygenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: code")
		return
	}

	programmer := orDefault(req.ProgrammerName, s.defaults.Programmer)
	header, err := s.composer.GenerateDoxygen(r.Context(), req.Code, programmer)
	if err != nil {
		s.logger.Error("Doxygen generation failed",
			"request_id", RequestID(r.Context()),
			"error", err)
		status, msg := composeErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, DoxygenResponse{Header: header})
}

// ----------------------------------------------------------------------------
// GET /api/doc/formats
// ----------------------------------------------------------------------------

// FormatEntry is one element of the format registry listing.
type FormatEntry struct {
	Name        string `json:"name"`
	MIMEType    string `json:"mime_type"`
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

// handleFormats returns the output format registry.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := render.Formats()
	entries := make([]FormatEntry, len(infos))
	for i, info := range infos {
		entries[i] = FormatEntry{
			Name:        string(info.Name),
			MIMEType:    info.MIMEType,
			Extension:   info.Extension,
			Description: info.Description,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"formats": entries})
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing to salvage.
		_ = err
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// orDefault returns s unless it is blank.
func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// mergeSpecs layers request specs over the server defaults. Fields left
// blank by both still take the pipeline's built-in defaults downstream.
func mergeSpecs(req, defaults compose.ProgramSpecs) compose.ProgramSpecs {
	return compose.ProgramSpecs{
		Type:     orDefault(req.Type, defaults.Type),
		Level:    orDefault(req.Level, defaults.Level),
		Category: orDefault(req.Category, defaults.Category),
		Heritage: orDefault(req.Heritage, defaults.Heritage),
	}
}
