package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider adapts OpenAI-compatible chat completion endpoints.
type OpenAIProvider struct {
	client *openai.Client
	apiKey string
}

// NewOpenAIProvider creates an OpenAI adapter. baseURL may point at any
// compatible endpoint.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) ValidateConfig() error {
	if p.apiKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	return nil
}

// Chat sends a non-streaming chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	oaReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  p.convertMessages(req),
		MaxTokens: req.MaxTokens,
	}

	if req.Temperature != nil {
		oaReq.Temperature = float32(*req.Temperature)
	}

	for _, tool := range req.Tools {
		oaReq.Tools = append(oaReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: p.Name(), Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response contained no choices")
	}

	return p.parseChoice(resp.Choices[0], resp.Usage)
}

func (p *OpenAIProvider) convertMessages(req *ChatRequest) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage

	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			oaMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, block := range msg.Content {
				switch block.Kind() {
				case BlockText:
					oaMsg.Content += block.Text()
				case BlockToolUse:
					use := block.ToolUse()
					args, _ := json.Marshal(use.Input)
					oaMsg.ToolCalls = append(oaMsg.ToolCalls, openai.ToolCall{
						ID:   use.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      use.Name,
							Arguments: string(args),
						},
					})
				}
			}
			out = append(out, oaMsg)

		case RoleUser:
			// Tool results ride in user turns on the unified side but become
			// individual "tool" role messages on the OpenAI wire.
			text := ""
			for _, block := range msg.Content {
				switch block.Kind() {
				case BlockText:
					if text != "" {
						text += "\n"
					}
					text += block.Text()
				case BlockToolResult:
					res := block.ToolResult()
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						ToolCallID: res.ToolUseID,
						Content:    res.Content,
					})
				}
			}
			if text != "" {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				})
			}
		}
	}

	return out
}

func (p *OpenAIProvider) parseChoice(choice openai.ChatCompletionChoice, usage openai.Usage) (*ChatResponse, error) {
	resp := &ChatResponse{
		Usage: Usage{
			InputTokens:  usage.PromptTokens,
			OutputTokens: usage.CompletionTokens,
		},
	}

	if choice.Message.Content != "" {
		resp.Content = append(resp.Content, NewTextBlock(choice.Message.Content))
	}

	for _, call := range choice.Message.ToolCalls {
		input := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("malformed tool arguments for %s: %w", call.Function.Name, err)
			}
		}
		resp.Content = append(resp.Content, NewToolUseBlock(call.ID, call.Function.Name, input))
	}

	if choice.FinishReason == openai.FinishReasonToolCalls || len(choice.Message.ToolCalls) > 0 {
		resp.StopReason = StopToolUse
	} else {
		resp.StopReason = StopEndTurn
	}

	return resp, nil
}
