package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liubx8864/supportloop/internal/llm"
)

// ConversationPO is the GORM model for the conversations table.
type ConversationPO struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	OwnerID   string    `gorm:"type:uuid;not null;index:idx_conversations_owner_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ConversationPO) TableName() string {
	return "conversations"
}

// MessagePO is the GORM model for the messages table. Seq is assigned on
// append and is unique per conversation, which makes append order durable
// and detects interleaved writers at the constraint level.
type MessagePO struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	ConversationID string        `gorm:"type:uuid;not null;index:idx_messages_conversation_id;uniqueIndex:uniq_messages_conversation_seq"`
	OwnerID        string        `gorm:"type:uuid;not null;index:idx_messages_owner_id"`
	Seq            int64         `gorm:"not null;uniqueIndex:uniq_messages_conversation_seq"`
	Role           string        `gorm:"size:20;not null"`
	ContentBlocks  ContentBlocks `gorm:"type:jsonb;not null"`
	TokenCount     *int          `gorm:"type:integer"`
	Provider       string        `gorm:"size:50"`
	Model          string        `gorm:"size:100"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_messages_created_at"`
}

func (MessagePO) TableName() string {
	return "messages"
}

// ContentBlocks stores the tagged content block union as JSONB.
type ContentBlocks []llm.ContentBlock

func (cb *ContentBlocks) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*cb = nil
		return nil
	case []byte:
		return json.Unmarshal(v, cb)
	case string:
		return json.Unmarshal([]byte(v), cb)
	default:
		return fmt.Errorf("unsupported content blocks source type %T", value)
	}
}

func (cb ContentBlocks) Value() (driver.Value, error) {
	if cb == nil {
		return json.Marshal([]llm.ContentBlock{})
	}
	return json.Marshal(cb)
}
