// Package main implements a mock LLM server for development and e2e
// testing. It serves OpenAI-compatible /v1/chat/completions responses,
// routing by the enrichment task inferred from the system prompt. This
// eliminates the need for a real LLM while wiring the documentation
// pipeline, making runs fast, deterministic, and offline-capable.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by task ("content.json", "header.json",
// "parameter.json", "comments.json", "doxygen.json"). The file content
// is returned as the assistant message. Tasks without a fixture fall
// back to built-in canned responses, so the server also works with no
// fixtures directory at all.
//
// Sequential fixtures: if numbered files exist (e.g. "content.1.json",
// "content.2.json"), the Nth call for that task returns the Nth fixture.
// After exhausting numbered fixtures, the base "content.json" is used
// as a repeating fallback. This enables testing feedback revision loops.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Task classification ---

// Enrichment tasks the documentation pipeline performs, recognized by
// markers in its system prompts.
const (
	taskContent   = "content"
	taskHeader    = "header"
	taskComments  = "comments"
	taskParameter = "parameter"
	taskDoxygen   = "doxygen"
)

// classifyTask infers which pipeline step is calling from the system
// prompt. Content is the fallback since it is the one call every
// generation makes.
func classifyTask(system string) string {
	switch {
	case strings.Contains(system, "return JSON containing comments"):
		return taskComments
	case strings.Contains(system, "description for the given macro parameter"):
		return taskParameter
	case strings.Contains(system, "purpose and example usage"):
		return taskHeader
	case strings.Contains(system, "Doxygen header"):
		return taskDoxygen
	default:
		return taskContent
	}
}

// --- Built-in responses ---

const defaultContentJSON = `{
  "Overview": "This macro processes the input data according to its parameters.",
  "Syntax": "%example_macro(param=value)",
  "Key Features and Functionalities": {
    "main_section": "Canned documentation body served without a model.",
    "subsections": [
      {"title": "Fixture Mode", "description": "Replace this text with a content.json fixture."}
    ]
  },
  "Usage Examples": ["%example_macro(param=1)", "%example_macro(param=2, debug=Y)"],
  "Return Values": "Creates an output dataset in the work library.",
  "Summary": "Deterministic mock output for pipeline wiring."
}`

const defaultHeaderJSON = `{"purpose": "Processes input data according to the macro parameters.", "example": "%example_macro(param=1)"}`

const defaultParameterJSON = `{"description": "Input value supplied by the caller."}`

const defaultDoxygenJSON = `{
  "brief": "Processes input data according to the macro parameters.",
  "details": "Canned Doxygen fields served without a model. Replace with a doxygen.json fixture for richer output.",
  "return": "Output dataset in the work library.",
  "warning": "",
  "note": "",
  "todo": ""
}`

// defaultResponses serves canned content for tasks without fixtures.
// Comments are handled separately since the answer depends on the
// submitted source.
var defaultResponses = map[string]string{
	taskContent:   defaultContentJSON,
	taskHeader:    defaultHeaderJSON,
	taskParameter: defaultParameterJSON,
	taskDoxygen:   defaultDoxygenJSON,
}

// commentsUserPrefix precedes the source code in the annotation user
// prompt; everything after it is the code to annotate.
const commentsUserPrefix = "Please add only critical logical comments precisely to this SAS code and return as JSON:\n"

// defaultCommentsResponse echoes the submitted source back with a marker
// comment prepended, so annotated output is distinguishable from input.
func defaultCommentsResponse(userPrompt string) (string, error) {
	source := strings.TrimPrefix(userPrompt, commentsUserPrefix)
	body, err := json.Marshal(map[string]string{
		"code": "/* reviewed by mock-llm */\n" + source,
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// --- Server ---

// capturedRequest stores the key fields of an incoming LLM request for
// test verification.
type capturedRequest struct {
	Task      string        `json:"task"`
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"` // 1-indexed per-task call number
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	fixtures map[string][]string // task → ordered fixture contents (sequential)
	calls    atomic.Int64        // total calls served

	// Per-task call counters for sequential fixture selection.
	taskCalls   map[string]*atomic.Int64
	taskCallsMu sync.Mutex // protects lazy init of taskCalls entries

	// Per-task request capture for prompt verification in e2e tests.
	taskRequests   map[string][]capturedRequest
	taskRequestsMu sync.Mutex
}

func newServer(fixtures map[string][]string) *server {
	return &server{
		fixtures:     fixtures,
		taskCalls:    make(map[string]*atomic.Int64),
		taskRequests: make(map[string][]capturedRequest),
	}
}

// captureRequest stores a request for later retrieval via /requests.
func (s *server) captureRequest(task string, req chatRequest, callIndex int) {
	s.taskRequestsMu.Lock()
	defer s.taskRequestsMu.Unlock()
	s.taskRequests[task] = append(s.taskRequests[task], capturedRequest{
		Task:      task,
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: callIndex,
		Timestamp: time.Now().UnixMilli(),
	})
}

// getTaskCounter returns the call counter for a task, creating it lazily.
func (s *server) getTaskCounter(task string) *atomic.Int64 {
	s.taskCallsMu.Lock()
	defer s.taskCallsMu.Unlock()
	if c, ok := s.taskCalls[task]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.taskCalls[task] = c
	return c
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files (optional)")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	// Allow env var override
	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}

	fixtures := make(map[string][]string)
	if *fixtureDir != "" {
		loaded, err := loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		fixtures = loaded
		log.Printf("Loaded %d task(s) from %s", len(fixtures), *fixtureDir)
		for task, seq := range fixtures {
			log.Printf("  task: %s (%d fixture(s))", task, len(seq))
		}
	} else {
		log.Printf("No fixtures directory, serving built-in responses")
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "no messages in request", http.StatusBadRequest)
		return
	}

	task := classifyTask(systemMessage(req))
	callNum := s.calls.Add(1)
	log.Printf("[call %d] task=%s model=%s messages=%d", callNum, task, req.Model, len(req.Messages))

	// Select fixture from sequence based on per-task call count
	counter := s.getTaskCounter(task)
	callIndex := int(counter.Add(1) - 1) // 0-indexed

	// Capture request for prompt verification (e2e /requests endpoint)
	s.captureRequest(task, req, callIndex+1)

	content, err := s.resolveContent(task, callIndex, req)
	if err != nil {
		log.Printf("[call %d] ERROR: %v", callNum, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Wrap in OpenAI response envelope
	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	log.Printf("[call %d] responded with %d bytes for task=%s", callNum, len(content), task)
}

// resolveContent picks the fixture for a task call, falling back to the
// built-in responses when no fixture covers the task.
func (s *server) resolveContent(task string, callIndex int, req chatRequest) (string, error) {
	if seq, ok := s.fixtures[task]; ok && len(seq) > 0 {
		if callIndex < len(seq) {
			return seq[callIndex], nil
		}
		return seq[len(seq)-1], nil // repeat last fixture
	}

	if task == taskComments {
		return defaultCommentsResponse(lastUserMessage(req))
	}
	if content, ok := defaultResponses[task]; ok {
		return content, nil
	}
	return "", fmt.Errorf("no fixture or default for task %q", task)
}

// systemMessage returns the content of the first system turn.
func systemMessage(req chatRequest) string {
	for _, m := range req.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// lastUserMessage returns the content of the final user turn.
func lastUserMessage(req chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// handleModels returns a mock model listing (OpenAI-compatible).
func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	models := []modelEntry{
		{ID: "mock-sasdoc", Object: "model", OwnedBy: "mock-llm"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   models,
	})
}

// handleStats returns call counts for test assertions.
// Returns total_calls and per-task calls_by_task breakdown.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.taskCallsMu.Lock()
	callsByTask := make(map[string]int64, len(s.taskCalls))
	for task, counter := range s.taskCalls {
		callsByTask[task] = counter.Load()
	}
	s.taskCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":   s.calls.Load(),
		"calls_by_task": callsByTask,
	})
}

// handleRequests returns captured request bodies for test assertions.
// Query params:
//   - task: filter by task name (optional, returns all tasks if omitted)
//   - call: filter by call index, 1-indexed (optional)
//
// Returns {"requests_by_task": {"content": [...], ...}}
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	taskFilter := r.URL.Query().Get("task")
	callFilter := r.URL.Query().Get("call")

	s.taskRequestsMu.Lock()
	result := make(map[string][]capturedRequest)
	for task, reqs := range s.taskRequests {
		if taskFilter != "" && task != taskFilter {
			continue
		}
		if callFilter != "" {
			callIdx, err := strconv.Atoi(callFilter)
			if err == nil {
				for _, req := range reqs {
					if req.CallIndex == callIdx {
						result[task] = append(result[task], req)
					}
				}
				continue
			}
		}
		result[task] = reqs
	}
	s.taskRequestsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requests_by_task": result,
	})
}

// numberedFileRe matches files like "content.1.json", "header.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir and returns a map of
// task → content sequence.
//
// For each task, fixtures are ordered:
//  1. Numbered files (task.1.json, task.2.json, ...) in numeric order
//  2. Base file (task.json) appended as the final fallback
//
// If only task.json exists, the sequence has one entry.
func loadFixtures(dir string) (map[string][]string, error) {
	// Collect raw file data: base files and numbered files separately
	baseFiles := make(map[string]string)             // task → content
	numberedFiles := make(map[string]map[int]string) // task → {index → content}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		content := string(data)

		// Check for numbered pattern: task.N.json
		if matches := numberedFileRe.FindStringSubmatch(info.Name()); matches != nil {
			task := matches[1]
			index, _ := strconv.Atoi(matches[2])
			if numberedFiles[task] == nil {
				numberedFiles[task] = make(map[int]string)
			}
			numberedFiles[task][index] = content
			return nil
		}

		// Base file: task.json
		task := strings.TrimSuffix(info.Name(), ".json")
		baseFiles[task] = content
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Build ordered sequences
	fixtures := make(map[string][]string)

	allTasks := make(map[string]bool)
	for t := range baseFiles {
		allTasks[t] = true
	}
	for t := range numberedFiles {
		allTasks[t] = true
	}

	for task := range allTasks {
		var seq []string

		// Numbered fixtures first, in order
		if numbered, ok := numberedFiles[task]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)

			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}

		// Append base file as fallback
		if base, ok := baseFiles[task]; ok {
			seq = append(seq, base)
		}

		if len(seq) > 0 {
			fixtures[task] = seq
		}
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}

	return fixtures, nil
}
