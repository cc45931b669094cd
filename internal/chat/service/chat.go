package service

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/liubx8864/supportloop/internal/auth"
	"github.com/liubx8864/supportloop/internal/chat/biz"
	apperrors "github.com/liubx8864/supportloop/internal/pkg/errors"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	pkgredis "github.com/liubx8864/supportloop/internal/pkg/redis"
	"github.com/liubx8864/supportloop/internal/pkg/response"
	"github.com/liubx8864/supportloop/internal/pkg/sse"
	"github.com/liubx8864/supportloop/internal/pkg/workerpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// loopTimeout caps one background loop execution.
const loopTimeout = 5 * time.Minute

// ChatService exposes the conversation API.
type ChatService struct {
	loop          *biz.LoopController
	conversations *biz.ConversationUseCase
	hub           *sse.Hub
	pool          *workerpool.Pool
	redis         *pkgredis.Client
	logger        *logger.Logger
}

// NewChatService creates the service.
func NewChatService(
	loop *biz.LoopController,
	conversations *biz.ConversationUseCase,
	hub *sse.Hub,
	pool *workerpool.Pool,
	redisClient *pkgredis.Client,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		loop:          loop,
		conversations: conversations,
		hub:           hub,
		pool:          pool,
		redis:         redisClient,
		logger:        log,
	}
}

// RegisterRoutes mounts the chat endpoints.
func (s *ChatService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/conversations/:id/messages", s.SendMessage)
	r.GET("/conversations/:id/messages", s.GetMessages)
	r.GET("/events", s.Subscribe)
}

// SendMessage submits a user message. The inference loop runs on the worker
// pool; the response only acknowledges acceptance and results arrive over
// the owner's event stream.
func (s *ChatService) SendMessage(c *gin.Context) {
	ownerID := c.GetString(auth.OwnerIDKey)
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "conversation id must be a uuid")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrEmptyMessage)
		return
	}

	// Fast-fail when another loop already holds the conversation. The lease
	// inside the controller stays authoritative; this only spares the client
	// a silent drop.
	if s.conversationBusy(c.Request.Context(), ownerID, conversationID) {
		response.ErrorWithCode(c, apperrors.ErrConversationBusy, conversationID)
		return
	}

	err := s.pool.Submit("chat-loop", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
		defer cancel()

		if err := s.loop.HandleUserMessage(ctx, ownerID, conversationID, req.Text); err != nil {
			s.logger.Error("inference loop failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
			s.hub.Broadcast(ownerID, sse.Event{
				Type: "error",
				Data: map[string]string{
					"conversation_id": conversationID,
					"message":         apperrors.FormatError(apperrors.ExtractCode(err)),
				},
			})
			return err
		}
		return nil
	})
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrServiceUnavail, "worker pool rejected the task")
		return
	}

	response.Accepted(c, SendMessageResponse{
		ConversationID: conversationID,
		Status:         "processing",
	})
}

// GetMessages returns the full ordered history of one conversation.
func (s *ChatService) GetMessages(c *gin.Context) {
	ownerID := c.GetString(auth.OwnerIDKey)
	conversationID := c.Param("id")

	msgs, err := s.conversations.GetAll(c.Request.Context(), conversationID, ownerID)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
		return
	}

	response.Success(c, HistoryResponse{
		ConversationID: conversationID,
		Messages:       toMessageViews(msgs),
	})
}

// Subscribe opens the owner's SSE stream. An optional since parameter
// (RFC3339) replays messages appended after that instant before live events
// flow, so a client recovering from a timeout cannot miss late appends.
func (s *ChatService) Subscribe(c *gin.Context) {
	ownerID := c.GetString(auth.OwnerIDKey)

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ErrorWithCode(c, apperrors.ErrInvalidParams, "since must be RFC3339")
			return
		}
		since = parsed
	}

	stream := sse.NewStream(c, s.hub).
		WithOwner(ownerID).
		WithReplay(s.replayFunc(ownerID, since)).
		Build()

	s.logger.Debug("subscriber connected",
		zap.String("owner_id", ownerID),
		zap.String("client_id", stream.ClientID()),
	)

	if err := stream.Run(); err != nil {
		s.logger.Debug("subscriber stream ended", zap.Error(err))
	}
}

func (s *ChatService) replayFunc(ownerID string, since time.Time) func(send func(sse.Event) error) error {
	if since.IsZero() {
		return nil
	}

	return func(send func(sse.Event) error) error {
		msgs, err := s.conversations.ListOwnerSince(context.Background(), ownerID, since)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			event := sse.Event{Type: EventMessageAppended, Data: toMessageView(msg)}
			if err := send(event); err != nil {
				return err
			}
		}
		return nil
	}
}

// conversationBusy reports whether the conversation lease key exists. Redis
// errors are treated as not busy; the controller's lock still decides.
func (s *ChatService) conversationBusy(ctx context.Context, ownerID, conversationID string) bool {
	_, err := s.redis.Get(ctx, biz.LockKey(ownerID, conversationID))
	if err == redis.Nil {
		return false
	}
	return err == nil
}
