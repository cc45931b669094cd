package service

import (
	"github.com/liubx8864/supportloop/internal/chat/biz"
	"github.com/liubx8864/supportloop/internal/pkg/sse"
)

// EventMessageAppended is the SSE event type for appended messages.
const EventMessageAppended = "message"

// SSENotifier broadcasts appended messages on the owner's channel.
type SSENotifier struct {
	hub *sse.Hub
}

// NewSSENotifier creates a notifier over a hub.
func NewSSENotifier(hub *sse.Hub) *SSENotifier {
	return &SSENotifier{hub: hub}
}

// MessageAppended implements biz.Notifier. Conversations multiplex over the
// owner channel; subscribers demultiplex on conversation_id in the payload.
func (n *SSENotifier) MessageAppended(ownerID string, msg *biz.Message) {
	n.hub.Broadcast(ownerID, sse.Event{
		Type: EventMessageAppended,
		Data: toMessageView(msg),
	})
}
