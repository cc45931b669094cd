package service

import (
	"time"

	"github.com/liubx8864/supportloop/internal/chat/biz"
	"github.com/liubx8864/supportloop/internal/llm"
)

// SendMessageRequest is the POST body for submitting a user message.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessageResponse acknowledges a fire-and-forget submission.
type SendMessageResponse struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

// MessageView is the wire shape of a persisted message.
type MessageView struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Seq            int64              `json:"seq"`
	Role           string             `json:"role"`
	Content        []llm.ContentBlock `json:"content"`
	TokenCount     *int               `json:"token_count,omitempty"`
	Provider       string             `json:"provider,omitempty"`
	Model          string             `json:"model,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// HistoryResponse wraps a conversation's ordered messages.
type HistoryResponse struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []MessageView `json:"messages"`
}

func toMessageView(msg *biz.Message) MessageView {
	return MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Seq:            msg.Seq,
		Role:           string(msg.Role),
		Content:        msg.Content,
		TokenCount:     msg.TokenCount,
		Provider:       msg.Provider,
		Model:          msg.Model,
		CreatedAt:      msg.CreatedAt,
	}
}

func toMessageViews(msgs []*biz.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, toMessageView(msg))
	}
	return views
}
