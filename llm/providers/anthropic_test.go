package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindoc/sasdoc/llm"
)

func TestAnthropicProvider_BuildURL(t *testing.T) {
	p := &AnthropicProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.anthropic.com/v1/messages",
		},
		{
			name:    "custom base URL",
			baseURL: "https://custom.api.com",
			want:    "https://custom.api.com/v1/messages",
		},
		{
			name:    "trailing slash handled",
			baseURL: "https://api.anthropic.com/",
			want:    "https://api.anthropic.com/v1/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.BuildURL(tt.baseURL)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnthropicProvider_BuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}

	temp := 0.2
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a SAS macro expert."},
			{Role: "user", Content: "Document this macro"},
			{Role: "assistant", Content: `{"Overview": "..."}`},
			{Role: "user", Content: "Add the revision"},
		},
		Temperature: &temp,
		MaxTokens:   2048,
	})
	require.NoError(t, err)

	// System message travels out of band
	assert.Contains(t, string(body), `"system":"You are a SAS macro expert."`)
	assert.NotContains(t, string(body), `"role":"system"`)

	assert.Contains(t, string(body), `"model":"claude-sonnet-4-20250514"`)
	assert.Contains(t, string(body), `"max_tokens":2048`)

	assert.Contains(t, string(body), `"role":"user"`)
	assert.Contains(t, string(body), `"role":"assistant"`)
}

func TestAnthropicProvider_BuildRequestBody_DefaultMaxTokens(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: "Hello"},
		},
	})
	require.NoError(t, err)

	// The messages API requires max_tokens; default kicks in
	assert.Contains(t, string(body), `"max_tokens":4096`)
	assert.NotContains(t, string(body), `"temperature"`)
}

func TestAnthropicProvider_BuildRequestBody_ZeroTemperature(t *testing.T) {
	p := &AnthropicProvider{}

	temp := 0.0
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: "Hello"},
		},
		Temperature: &temp,
	})
	require.NoError(t, err)

	// Temperature should be present even when 0 (deterministic)
	assert.Contains(t, string(body), `"temperature":0`)
}

func TestAnthropicProvider_ParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	responseBody := []byte(`{
		"id": "msg_123",
		"type": "message",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "The macro derives treatment-emergent flags."}
		],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": {
			"input_tokens": 15,
			"output_tokens": 8
		}
	}`)

	resp, err := p.ParseResponse(responseBody, "claude-sonnet")
	require.NoError(t, err)

	assert.Equal(t, "The macro derives treatment-emergent flags.", resp.Content)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, "end_turn", resp.FinishReason)

	assert.Equal(t, 15, resp.Usage.PromptTokens)
	assert.Equal(t, 8, resp.Usage.CompletionTokens)
	assert.Equal(t, 23, resp.Usage.TotalTokens)
}

func TestAnthropicProvider_ParseResponse_MultipleContentBlocks(t *testing.T) {
	p := &AnthropicProvider{}

	responseBody := []byte(`{
		"id": "msg_123",
		"type": "message",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "First part. "},
			{"type": "text", "text": "Second part."}
		],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`)

	resp, err := p.ParseResponse(responseBody, "claude-sonnet")
	require.NoError(t, err)

	assert.Equal(t, "First part. Second part.", resp.Content)
}
