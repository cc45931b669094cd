package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropicProvider creates an Anthropic adapter.
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) ValidateConfig() error {
	if p.apiKey == "" {
		return fmt.Errorf("anthropic api key is required")
	}
	return nil
}

// Chat sends a non-streaming messages request.
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(p.convertRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := p.baseURL
	if !strings.HasSuffix(apiURL, "/v1") {
		apiURL += "/v1"
	}
	apiURL += "/messages"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = string(raw)
		}
		return nil, &APIError{Provider: p.Name(), Status: resp.StatusCode, Message: msg}
	}

	return p.parseResponse(raw)
}

func (p *AnthropicProvider) convertRequest(req *ChatRequest) map[string]interface{} {
	out := map[string]interface{}{
		"model":      req.Model,
		"messages":   p.convertMessages(req.Messages),
		"max_tokens": req.MaxTokens,
	}
	if req.MaxTokens == 0 {
		out["max_tokens"] = 4096
	}

	if req.Temperature != nil {
		out["temperature"] = *req.Temperature
	}
	if req.System != "" {
		out["system"] = req.System
	}

	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, 0, len(req.Tools))
		for _, tool := range req.Tools {
			tools = append(tools, map[string]interface{}{
				"name":         tool.Name,
				"description":  tool.Description,
				"input_schema": tool.InputSchema,
			})
		}
		out["tools"] = tools
	}

	return out
}

func (p *AnthropicProvider) convertMessages(messages []Message) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(messages))

	for _, msg := range messages {
		content := make([]map[string]interface{}, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch block.Kind() {
			case BlockText:
				content = append(content, map[string]interface{}{
					"type": "text",
					"text": block.Text(),
				})
			case BlockToolUse:
				use := block.ToolUse()
				input := use.Input
				if input == nil {
					input = map[string]interface{}{}
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    use.ID,
					"name":  use.Name,
					"input": input,
				})
			case BlockToolResult:
				res := block.ToolResult()
				entry := map[string]interface{}{
					"type":        "tool_result",
					"tool_use_id": res.ToolUseID,
					"content":     res.Content,
				}
				if res.IsError {
					entry["is_error"] = true
				}
				content = append(content, entry)
			}
		}

		result = append(result, map[string]interface{}{
			"role":    string(msg.Role),
			"content": content,
		})
	}

	return result
}

type anthropicResponse struct {
	Content []struct {
		Type  string                 `json:"type"`
		Text  string                 `json:"text"`
		ID    string                 `json:"id"`
		Name  string                 `json:"name"`
		Input map[string]interface{} `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicProvider) parseResponse(raw []byte) (*ChatResponse, error) {
	var ar anthropicResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	resp := &ChatResponse{
		Usage: Usage{
			InputTokens:  ar.Usage.InputTokens,
			OutputTokens: ar.Usage.OutputTokens,
		},
	}

	for _, block := range ar.Content {
		switch block.Type {
		case "text":
			resp.Content = append(resp.Content, NewTextBlock(block.Text))
		case "tool_use":
			resp.Content = append(resp.Content, NewToolUseBlock(block.ID, block.Name, block.Input))
		}
	}

	switch ar.StopReason {
	case "tool_use":
		resp.StopReason = StopToolUse
	default:
		resp.StopReason = StopEndTurn
	}

	return resp, nil
}
