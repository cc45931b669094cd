package data

import (
	"context"
	"time"

	"github.com/liubx8864/supportloop/internal/chat/biz"
	"github.com/liubx8864/supportloop/internal/chat/models"
	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/liubx8864/supportloop/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepo implements biz.ConversationRepo on PostgreSQL.
type ConversationRepo struct {
	db *database.DB
}

// NewConversationRepo creates the repository.
func NewConversationRepo(db *database.DB) biz.ConversationRepo {
	return &ConversationRepo{db: db}
}

// EnsureConversation creates the conversation row if it does not exist yet.
// An existing row under another owner is rejected so two owners can never
// share one message sequence.
func (r *ConversationRepo) EnsureConversation(ctx context.Context, conversationID, ownerID string) error {
	po := models.ConversationPO{
		ID:        conversationID,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&po)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing models.ConversationPO
	err := r.db.WithContext(ctx).
		Select("owner_id").
		Where("id = ?", conversationID).
		First(&existing).Error
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		return biz.ErrConversationOwnerMismatch
	}
	return nil
}

// Append assigns the next sequence number and inserts the message in one
// transaction. The unique (conversation_id, seq) index turns a racing
// writer into a constraint violation instead of silent interleaving.
func (r *ConversationRepo) Append(ctx context.Context, msg *biz.Message) (*biz.Message, error) {
	po := toMessagePO(msg)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		err := tx.Model(&models.MessagePO{}).
			Where("conversation_id = ?", msg.ConversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}

		po.Seq = maxSeq + 1

		if err := tx.Create(po).Error; err != nil {
			return err
		}

		return tx.Model(&models.ConversationPO{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}

	return toMessage(po), nil
}

// GetAll returns the conversation's messages in append order.
func (r *ConversationRepo) GetAll(ctx context.Context, conversationID, ownerID string) ([]*biz.Message, error) {
	var pos []models.MessagePO
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND owner_id = ?", conversationID, ownerID).
		Order("seq ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	return toMessages(pos), nil
}

// ListOwnerSince returns the owner's messages appended after the given
// instant, across all conversations, for subscription replay.
func (r *ConversationRepo) ListOwnerSince(ctx context.Context, ownerID string, since time.Time) ([]*biz.Message, error) {
	var pos []models.MessagePO
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND created_at > ?", ownerID, since).
		Order("created_at ASC, seq ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	return toMessages(pos), nil
}

func toMessagePO(msg *biz.Message) *models.MessagePO {
	return &models.MessagePO{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		OwnerID:        msg.OwnerID,
		Seq:            msg.Seq,
		Role:           string(msg.Role),
		ContentBlocks:  models.ContentBlocks(msg.Content),
		TokenCount:     msg.TokenCount,
		Provider:       msg.Provider,
		Model:          msg.Model,
		CreatedAt:      msg.CreatedAt,
	}
}

func toMessage(po *models.MessagePO) *biz.Message {
	return &biz.Message{
		ID:             po.ID,
		ConversationID: po.ConversationID,
		OwnerID:        po.OwnerID,
		Seq:            po.Seq,
		Role:           llm.Role(po.Role),
		Content:        po.ContentBlocks,
		TokenCount:     po.TokenCount,
		Provider:       po.Provider,
		Model:          po.Model,
		CreatedAt:      po.CreatedAt,
	}
}

func toMessages(pos []models.MessagePO) []*biz.Message {
	msgs := make([]*biz.Message, 0, len(pos))
	for i := range pos {
		msgs = append(msgs, toMessage(&pos[i]))
	}
	return msgs
}
