package biz

import (
	"context"
	"testing"

	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	appended []*Message
}

func (n *recordingNotifier) MessageAppended(_ string, msg *Message) {
	n.appended = append(n.appended, msg)
}

func TestConversationAppend(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	uc := NewConversationUseCase(repo, notifier, nil)

	stored, err := uc.Append(context.Background(), &Message{
		ConversationID: "conv-1",
		OwnerID:        "owner-1",
		Role:           llm.RoleUser,
		Content:        []llm.ContentBlock{llm.NewTextBlock("hello")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, int64(1), stored.Seq)

	require.Len(t, notifier.appended, 1)
	assert.Equal(t, stored.ID, notifier.appended[0].ID)

	// Sequence numbers are per conversation.
	second, err := uc.Append(context.Background(), &Message{
		ConversationID: "conv-1",
		OwnerID:        "owner-1",
		Role:           llm.RoleAssistant,
		Content:        []llm.ContentBlock{llm.NewTextBlock("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	other, err := uc.Append(context.Background(), &Message{
		ConversationID: "conv-2",
		OwnerID:        "owner-1",
		Role:           llm.RoleUser,
		Content:        []llm.ContentBlock{llm.NewTextBlock("new topic")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), other.Seq)
}

func TestConversationAppendValidation(t *testing.T) {
	uc := NewConversationUseCase(newMemoryRepo(), nil, nil)

	_, err := uc.Append(context.Background(), &Message{OwnerID: "owner-1"})
	assert.Error(t, err)

	_, err = uc.Append(context.Background(), &Message{ConversationID: "conv-1"})
	assert.Error(t, err)
}

func TestHistoryConversion(t *testing.T) {
	msgs := []*Message{
		{Role: llm.RoleUser, Content: []llm.ContentBlock{llm.NewTextBlock("q")}},
		{Role: llm.RoleAssistant, Content: []llm.ContentBlock{llm.NewTextBlock("a")}},
	}

	wire := History(msgs)
	require.Len(t, wire, 2)
	assert.Equal(t, llm.RoleUser, wire[0].Role)
	assert.Equal(t, "q", wire[0].Content[0].Text())
	assert.Equal(t, llm.RoleAssistant, wire[1].Role)
}
