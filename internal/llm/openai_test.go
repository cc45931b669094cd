package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIConvertMessages(t *testing.T) {
	provider := NewOpenAIProvider("k", "")

	out := provider.convertMessages(&ChatRequest{
		System: "You are a support assistant.",
		Messages: []Message{
			TextMessage(RoleUser, "list my orders"),
			{
				Role: RoleAssistant,
				Content: []ContentBlock{
					NewTextBlock("Checking."),
					NewToolUseBlock("call_1", "list_orders", map[string]interface{}{"customer_id": "c-1"}),
				},
			},
			{
				Role: RoleUser,
				Content: []ContentBlock{
					NewToolResultBlock("call_1", `{"orders":[],"count":0}`, false),
				},
			},
		},
	})

	require.Len(t, out, 4)

	assert.Equal(t, openai.ChatMessageRoleSystem, out[0].Role)
	assert.Equal(t, "You are a support assistant.", out[0].Content)

	assert.Equal(t, openai.ChatMessageRoleUser, out[1].Role)
	assert.Equal(t, "list my orders", out[1].Content)

	assert.Equal(t, openai.ChatMessageRoleAssistant, out[2].Role)
	assert.Equal(t, "Checking.", out[2].Content)
	require.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "call_1", out[2].ToolCalls[0].ID)
	assert.Equal(t, "list_orders", out[2].ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"customer_id":"c-1"}`, out[2].ToolCalls[0].Function.Arguments)

	// The unified tool-result turn becomes an OpenAI tool role message.
	assert.Equal(t, openai.ChatMessageRoleTool, out[3].Role)
	assert.Equal(t, "call_1", out[3].ToolCallID)
	assert.Equal(t, `{"orders":[],"count":0}`, out[3].Content)
}

func TestOpenAIParseChoice(t *testing.T) {
	provider := NewOpenAIProvider("k", "")

	tests := []struct {
		name     string
		choice   openai.ChatCompletionChoice
		wantStop StopReason
		wantUses int
		wantErr  bool
	}{
		{
			name: "plain text completion",
			choice: openai.ChatCompletionChoice{
				Message:      openai.ChatCompletionMessage{Content: "all done"},
				FinishReason: openai.FinishReasonStop,
			},
			wantStop: StopEndTurn,
		},
		{
			name: "tool call completion",
			choice: openai.ChatCompletionChoice{
				Message: openai.ChatCompletionMessage{
					ToolCalls: []openai.ToolCall{
						{
							ID:   "call_9",
							Type: openai.ToolTypeFunction,
							Function: openai.FunctionCall{
								Name:      "get_order",
								Arguments: `{"order_id":"o-2"}`,
							},
						},
					},
				},
				FinishReason: openai.FinishReasonToolCalls,
			},
			wantStop: StopToolUse,
			wantUses: 1,
		},
		{
			name: "malformed tool arguments",
			choice: openai.ChatCompletionChoice{
				Message: openai.ChatCompletionMessage{
					ToolCalls: []openai.ToolCall{
						{
							ID:       "call_9",
							Function: openai.FunctionCall{Name: "get_order", Arguments: `{"order_id":`},
						},
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := provider.parseChoice(tt.choice, openai.Usage{PromptTokens: 5, CompletionTokens: 7})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStop, resp.StopReason)
			assert.Len(t, resp.ToolUses(), tt.wantUses)
			assert.Equal(t, 7, resp.Usage.OutputTokens)
		})
	}
}
