package llm

import (
	"encoding/json"
	"fmt"
)

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason indicates whether the model finished its turn or is asking for
// tool execution before it can continue.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// BlockKind tags a ContentBlock variant.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ToolUseBlock is a model-issued request to run a named tool.
type ToolUseBlock struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResultBlock answers a prior ToolUseBlock with the same correlation id.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ContentBlock is a tagged union: exactly one variant is populated, selected
// by kind. Construct values through the NewXxxBlock helpers so an invalid
// combination cannot be represented.
type ContentBlock struct {
	kind       BlockKind
	text       string
	toolUse    *ToolUseBlock
	toolResult *ToolResultBlock
}

// NewTextBlock creates a plain text block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{kind: BlockText, text: text}
}

// NewToolUseBlock creates a tool invocation request block.
func NewToolUseBlock(id, name string, input map[string]interface{}) ContentBlock {
	return ContentBlock{kind: BlockToolUse, toolUse: &ToolUseBlock{ID: id, Name: name, Input: input}}
}

// NewToolResultBlock creates a tool result block.
func NewToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{kind: BlockToolResult, toolResult: &ToolResultBlock{
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}}
}

// Kind returns the variant tag.
func (b ContentBlock) Kind() BlockKind { return b.kind }

// Text returns the text payload; empty for non-text blocks.
func (b ContentBlock) Text() string { return b.text }

// ToolUse returns the tool-use payload, or nil.
func (b ContentBlock) ToolUse() *ToolUseBlock { return b.toolUse }

// ToolResult returns the tool-result payload, or nil.
func (b ContentBlock) ToolResult() *ToolResultBlock { return b.toolResult }

// contentBlockJSON is the wire/persistence shape of the union.
type contentBlockJSON struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	out := contentBlockJSON{Type: string(b.kind)}
	switch b.kind {
	case BlockText:
		out.Text = b.text
	case BlockToolUse:
		out.ID = b.toolUse.ID
		out.Name = b.toolUse.Name
		out.Input = b.toolUse.Input
	case BlockToolResult:
		out.ToolUseID = b.toolResult.ToolUseID
		out.Content = b.toolResult.Content
		out.IsError = b.toolResult.IsError
	default:
		return nil, fmt.Errorf("unknown content block kind: %q", b.kind)
	}
	return json.Marshal(out)
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw contentBlockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch BlockKind(raw.Type) {
	case BlockText:
		*b = NewTextBlock(raw.Text)
	case BlockToolUse:
		*b = NewToolUseBlock(raw.ID, raw.Name, raw.Input)
	case BlockToolResult:
		*b = NewToolResultBlock(raw.ToolUseID, raw.Content, raw.IsError)
	default:
		return fmt.Errorf("unknown content block type: %q", raw.Type)
	}
	return nil
}

// Message is one conversation turn.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a single-text-block message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{NewTextBlock(text)}}
}

// Tool declares a callable operation to the model.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ChatRequest is the unified inference request.
type ChatRequest struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature *float64
	MaxTokens   int
}

// Usage reports token consumption for one inference call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is the unified inference response.
type ChatResponse struct {
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// TextContent concatenates the text blocks of the response.
func (r *ChatResponse) TextContent() string {
	out := ""
	for _, block := range r.Content {
		if block.Kind() == BlockText {
			if out != "" {
				out += "\n"
			}
			out += block.Text()
		}
	}
	return out
}

// ToolUses returns every tool-use block in the response, in order.
func (r *ChatResponse) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, block := range r.Content {
		if block.Kind() == BlockToolUse {
			uses = append(uses, block.ToolUse())
		}
	}
	return uses
}
