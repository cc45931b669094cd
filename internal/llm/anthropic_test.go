package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicChatRequestWire(t *testing.T) {
	var captured map[string]interface{}
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "done"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	provider := NewAnthropicProvider("test-key", server.URL)

	temperature := 0.0
	resp, err := provider.Chat(context.Background(), &ChatRequest{
		Model:  "claude-sonnet-4-20250514",
		System: "You are a support assistant.",
		Messages: []Message{
			TextMessage(RoleUser, "cancel my order"),
			{
				Role: RoleAssistant,
				Content: []ContentBlock{
					NewToolUseBlock("toolu_01", "cancel_order", map[string]interface{}{"order_id": "o-1"}),
				},
			},
			{
				Role: RoleUser,
				Content: []ContentBlock{
					NewToolResultBlock("toolu_01", `{"cancelled":true}`, false),
				},
			},
		},
		Tools: []Tool{
			{Name: "cancel_order", Description: "Cancel an order.", InputSchema: map[string]interface{}{"type": "object"}},
		},
		Temperature: &temperature,
		MaxTokens:   1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))

	assert.Equal(t, "claude-sonnet-4-20250514", captured["model"])
	assert.Equal(t, "You are a support assistant.", captured["system"])
	assert.Equal(t, float64(0), captured["temperature"])
	assert.Equal(t, float64(1024), captured["max_tokens"])

	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]interface{})
	assert.Equal(t, "assistant", assistant["role"])
	blocks := assistant["content"].([]interface{})
	require.Len(t, blocks, 1)
	use := blocks[0].(map[string]interface{})
	assert.Equal(t, "tool_use", use["type"])
	assert.Equal(t, "toolu_01", use["id"])

	toolTurn := messages[2].(map[string]interface{})
	assert.Equal(t, "user", toolTurn["role"])
	result := toolTurn["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, "toolu_01", result["tool_use_id"])

	assert.Equal(t, StopEndTurn, resp.StopReason)
	assert.Equal(t, "done", resp.TextContent())
	assert.Equal(t, 2, resp.Usage.OutputTokens)
}

func TestAnthropicChatToolUseStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Looking that up."},
				{"type": "tool_use", "id": "toolu_02", "name": "lookup_customer",
				 "input": {"identifier_type": "email", "value": "a@b.com"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 20, "output_tokens": 15}
		}`))
	}))
	defer server.Close()

	provider := NewAnthropicProvider("test-key", server.URL)
	resp, err := provider.Chat(context.Background(), &ChatRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []Message{TextMessage(RoleUser, "find customer a@b.com")},
	})
	require.NoError(t, err)

	assert.Equal(t, StopToolUse, resp.StopReason)
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "lookup_customer", uses[0].Name)
	assert.Equal(t, "email", uses[0].Input["identifier_type"])
}

func TestAnthropicChatAPIError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantRetryable bool
	}{
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error": {"type": "rate_limit_error", "message": "rate limited"}}`,
			wantMessage:   "rate limited",
			wantRetryable: true,
		},
		{
			name:          "server error",
			status:        http.StatusInternalServerError,
			body:          `{"error": {"message": "overloaded"}}`,
			wantMessage:   "overloaded",
			wantRetryable: true,
		},
		{
			name:          "bad request is terminal",
			status:        http.StatusBadRequest,
			body:          `{"error": {"message": "max_tokens required"}}`,
			wantMessage:   "max_tokens required",
			wantRetryable: false,
		},
		{
			name:          "non-json error body",
			status:        http.StatusBadGateway,
			body:          `upstream unavailable`,
			wantMessage:   "upstream unavailable",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewAnthropicProvider("test-key", server.URL)
			_, err := provider.Chat(context.Background(), &ChatRequest{
				Model:    "claude-sonnet-4-20250514",
				Messages: []Message{TextMessage(RoleUser, "hi")},
			})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))
		})
	}
}

func TestAnthropicDefaultMaxTokens(t *testing.T) {
	provider := NewAnthropicProvider("k", "")
	out := provider.convertRequest(&ChatRequest{Model: "m"})
	assert.Equal(t, 4096, out["max_tokens"])
}

func TestIsRetryableCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, IsRetryable(ctx.Err()))
	assert.False(t, IsRetryable(nil))
}

func TestNewProviderFactory(t *testing.T) {
	p, err := NewProvider(Config{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(Config{Provider: "bedrock"})
	assert.Error(t, err)

	p, _ = NewProvider(Config{Provider: "anthropic"})
	assert.Error(t, p.ValidateConfig(), "missing api key must fail validation")
}
