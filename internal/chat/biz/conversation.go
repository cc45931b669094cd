package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/liubx8864/supportloop/internal/llm"
)

// ErrConversationOwnerMismatch reports that a conversation id already exists
// under a different owner.
var ErrConversationOwnerMismatch = errors.New("conversation belongs to a different owner")

// Message is one persisted conversation turn.
type Message struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	OwnerID        string             `json:"owner_id"`
	Seq            int64              `json:"seq"`
	Role           llm.Role           `json:"role"`
	Content        []llm.ContentBlock `json:"content"`
	TokenCount     *int               `json:"token_count,omitempty"`
	Provider       string             `json:"provider,omitempty"`
	Model          string             `json:"model,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ConversationRepo is the append-only persistence interface. Append assigns
// the next per-conversation sequence number; GetAll returns messages in
// exactly that order.
type ConversationRepo interface {
	// EnsureConversation creates the conversation row on first use and
	// returns ErrConversationOwnerMismatch when the id already belongs to
	// another owner.
	EnsureConversation(ctx context.Context, conversationID, ownerID string) error
	Append(ctx context.Context, msg *Message) (*Message, error)
	GetAll(ctx context.Context, conversationID, ownerID string) ([]*Message, error)
	// ListOwnerSince returns all of an owner's messages created after the
	// given instant, across conversations, for subscription replay.
	ListOwnerSince(ctx context.Context, ownerID string, since time.Time) ([]*Message, error)
}

// Notifier pushes an appended message to the owner's subscribers.
type Notifier interface {
	MessageAppended(ownerID string, msg *Message)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) MessageAppended(string, *Message) {}

// ConversationUseCase owns the canonical message sequence.
type ConversationUseCase struct {
	repo     ConversationRepo
	notifier Notifier
	counter  *llm.TokenCounter
}

// NewConversationUseCase creates the use case.
func NewConversationUseCase(repo ConversationRepo, notifier Notifier, counter *llm.TokenCounter) *ConversationUseCase {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ConversationUseCase{repo: repo, notifier: notifier, counter: counter}
}

// Append persists a message and notifies subscribers. The stored message
// (with id, seq and timestamp assigned) is returned.
func (uc *ConversationUseCase) Append(ctx context.Context, msg *Message) (*Message, error) {
	if msg.ConversationID == "" || msg.OwnerID == "" {
		return nil, fmt.Errorf("conversation id and owner id are required")
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if msg.TokenCount == nil && uc.counter != nil {
		n := uc.counter.Count(llm.Message{Role: msg.Role, Content: msg.Content})
		if n > 0 {
			msg.TokenCount = &n
		}
	}

	stored, err := uc.repo.Append(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	uc.notifier.MessageAppended(stored.OwnerID, stored)

	return stored, nil
}

// EnsureConversation creates the conversation row on first use.
func (uc *ConversationUseCase) EnsureConversation(ctx context.Context, conversationID, ownerID string) error {
	return uc.repo.EnsureConversation(ctx, conversationID, ownerID)
}

// GetAll returns the full ordered history.
func (uc *ConversationUseCase) GetAll(ctx context.Context, conversationID, ownerID string) ([]*Message, error) {
	msgs, err := uc.repo.GetAll(ctx, conversationID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return msgs, nil
}

// ListOwnerSince supports subscription replay after a reconnect.
func (uc *ConversationUseCase) ListOwnerSince(ctx context.Context, ownerID string, since time.Time) ([]*Message, error) {
	msgs, err := uc.repo.ListOwnerSince(ctx, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load replay window: %w", err)
	}
	return msgs, nil
}

// History converts stored messages into inference wire messages.
func History(msgs []*Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
