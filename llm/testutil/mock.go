// Package testutil provides test utilities for the llm package.
// It includes mock implementations for testing LLM client interactions.
package testutil

import (
	"context"
	"sync"

	"github.com/clindoc/sasdoc/llm"
)

// MockLLMClient is a thread-safe mock LLM client for testing.
// It records every request passed to Complete() and returns configured
// responses.
//
// Usage:
//
//	// Single response mock
//	mock := &MockLLMClient{
//	    Responses: []*llm.Response{
//	        {Content: `{"Overview": "..."}`, Model: "test-model"},
//	    },
//	}
//
//	// Request-aware mock (for concurrent pipelines where response
//	// order is not deterministic)
//	mock := &MockLLMClient{
//	    Handler: func(req llm.Request) (*llm.Response, error) {
//	        if req.Capability == "fast" {
//	            return &llm.Response{Content: `{"description": "x"}`}, nil
//	        }
//	        return &llm.Response{Content: "{}"}, nil
//	    },
//	}
//
//	// Error response
//	mock := &MockLLMClient{
//	    Err: errors.New("connection failed"),
//	}
type MockLLMClient struct {
	mu              sync.Mutex
	capturedContext context.Context
	requests        []llm.Request

	// Handler, when set, decides the response per request. Takes
	// precedence over Responses. Useful when requests arrive
	// concurrently and sequence order is meaningless.
	Handler func(req llm.Request) (*llm.Response, error)

	// Responses to return in sequence when no Handler is set.
	Responses []*llm.Response

	// Err to return (takes precedence over Handler and Responses).
	Err error

	callCount     int
	responseIndex int
}

// Complete implements the Completer interface used by the composer.
// Returns Err if set, then consults Handler, then the Responses sequence.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.capturedContext = ctx
	m.requests = append(m.requests, req)
	m.callCount++

	if m.Err != nil {
		return nil, m.Err
	}

	if m.Handler != nil {
		return m.Handler(req)
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	// Default response if no responses configured
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// GetCapturedContext returns the last context passed to Complete().
func (m *MockLLMClient) GetCapturedContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedContext
}

// GetCallCount returns the number of times Complete() was called.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GetRequests returns a copy of all requests seen so far.
func (m *MockLLMClient) GetRequests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears the mock's state (call count, requests, response index).
// Useful for reusing the same mock instance across multiple test cases.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
	m.requests = nil
	m.capturedContext = nil
}
