package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/liubx8864/supportloop/internal/llm"
	apperrors "github.com/liubx8864/supportloop/internal/pkg/errors"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	pkgredis "github.com/liubx8864/supportloop/internal/pkg/redis"
	"go.uber.org/zap"
)

// ToolExecutor runs one tool-use request and returns the matching
// tool-result block.
type ToolExecutor interface {
	Execute(ctx context.Context, use *llm.ToolUseBlock) (llm.ContentBlock, error)
}

// ToolSource provides the static tool declarations for inference requests.
type ToolSource interface {
	Definitions() []llm.Tool
}

// Locker serializes loop executions per conversation.
type Locker interface {
	WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error
}

// LoopConfig bounds one loop execution.
type LoopConfig struct {
	Model         string
	SystemPrompt  string
	MaxTokens     int
	MaxToolRounds int
	MaxRetries    int
	RetryBaseWait time.Duration
	LockTTL       time.Duration
}

// LoopController drives the call / tool-execute cycle for one user message
// until the model ends its turn.
type LoopController struct {
	conversations *ConversationUseCase
	provider      llm.Provider
	executor      ToolExecutor
	toolSource    ToolSource
	locker        Locker
	cfg           LoopConfig
	logger        *logger.Logger
}

// NewLoopController creates a controller.
func NewLoopController(
	conversations *ConversationUseCase,
	provider llm.Provider,
	executor ToolExecutor,
	toolSource ToolSource,
	locker Locker,
	cfg LoopConfig,
	log *logger.Logger,
) *LoopController {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 8
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = 500 * time.Millisecond
	}

	return &LoopController{
		conversations: conversations,
		provider:      provider,
		executor:      executor,
		toolSource:    toolSource,
		locker:        locker,
		cfg:           cfg,
		logger:        log,
	}
}

// HandleUserMessage appends the user turn and runs the loop to its terminal
// state. The whole execution holds a per-conversation lease so overlapping
// submissions for the same conversation cannot interleave appends.
func (lc *LoopController) HandleUserMessage(ctx context.Context, ownerID, conversationID, userText string) error {
	if strings.TrimSpace(userText) == "" {
		return apperrors.New(apperrors.ErrEmptyMessage)
	}
	if conversationID == "" || ownerID == "" {
		return apperrors.New(apperrors.ErrInvalidParams, "conversation id and owner id are required")
	}

	err := lc.locker.WithLock(ctx, LockKey(ownerID, conversationID), lc.cfg.LockTTL, func() error {
		return lc.run(ctx, ownerID, conversationID, userText)
	})
	if errors.Is(err, pkgredis.ErrLockHeld) {
		return apperrors.New(apperrors.ErrConversationBusy, conversationID)
	}
	return err
}

func (lc *LoopController) run(ctx context.Context, ownerID, conversationID, userText string) error {
	log := lc.logger.With(
		zap.String("conversation_id", conversationID),
		zap.String("owner_id", ownerID),
	)

	if err := lc.conversations.EnsureConversation(ctx, conversationID, ownerID); err != nil {
		// A conversation held by another owner is indistinguishable from a
		// missing one to this caller.
		if errors.Is(err, ErrConversationOwnerMismatch) {
			return apperrors.New(apperrors.ErrConversationNotFound, conversationID)
		}
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}

	userMsg := &Message{
		ConversationID: conversationID,
		OwnerID:        ownerID,
		Role:           llm.RoleUser,
		Content:        []llm.ContentBlock{llm.NewTextBlock(userText)},
	}
	if _, err := lc.conversations.Append(ctx, userMsg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}

	// Temperature 0 keeps tool selection deterministic.
	temperature := 0.0

	// round counts completed tool-execution rounds; MaxToolRounds is the
	// exact number permitted before the loop refuses to continue.
	for round := 0; ; round++ {
		history, err := lc.conversations.GetAll(ctx, conversationID, ownerID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternalServer)
		}

		req := &llm.ChatRequest{
			Model:       lc.cfg.Model,
			System:      lc.cfg.SystemPrompt,
			Messages:    History(history),
			Tools:       lc.toolSource.Definitions(),
			Temperature: &temperature,
			MaxTokens:   lc.cfg.MaxTokens,
		}

		resp, err := lc.chatWithRetry(ctx, req)
		if err != nil {
			log.Error("inference failed", zap.Int("round", round), zap.Error(err))
			return apperrors.Wrap(err, apperrors.ErrInferenceFailed)
		}

		// Refuse another round before persisting the request for it; the
		// discarded response keeps the stored history free of tool_use blocks
		// that would never be answered.
		if resp.StopReason == llm.StopToolUse && len(resp.ToolUses()) > 0 && round >= lc.cfg.MaxToolRounds {
			log.Error("tool round limit exceeded", zap.Int("rounds", round))
			return apperrors.New(apperrors.ErrToolRoundsExceeded)
		}

		outputTokens := resp.Usage.OutputTokens
		assistantMsg := &Message{
			ConversationID: conversationID,
			OwnerID:        ownerID,
			Role:           llm.RoleAssistant,
			Content:        resp.Content,
			Provider:       lc.provider.Name(),
			Model:          lc.cfg.Model,
		}
		if outputTokens > 0 {
			assistantMsg.TokenCount = &outputTokens
		}
		if _, err := lc.conversations.Append(ctx, assistantMsg); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternalServer)
		}

		if resp.StopReason != llm.StopToolUse {
			log.Info("turn complete", zap.Int("tool_rounds", round))
			return nil
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			// Stop reason claimed tool use but no blocks arrived; treat as a
			// finished turn rather than loop forever.
			log.Warn("tool_use stop reason without tool_use blocks")
			return nil
		}

		// Every tool-use block gets a matching result before the next
		// inference call; results ride in one synthetic user turn. An
		// executor failure still answers its block (and every remaining one)
		// with an is_error result, so the persisted history never carries an
		// unmatched tool_use into a later loop execution.
		results := make([]llm.ContentBlock, 0, len(uses))
		var execErr error
		var failedTool string
		for _, use := range uses {
			if execErr != nil {
				results = append(results, failedToolResult(use.ID))
				continue
			}

			result, err := lc.executor.Execute(ctx, use)
			if err != nil {
				log.Error("tool execution failed",
					zap.String("tool", use.Name),
					zap.Error(err),
				)
				execErr = err
				failedTool = use.Name
				results = append(results, failedToolResult(use.ID))
				continue
			}
			results = append(results, result)
		}

		resultMsg := &Message{
			ConversationID: conversationID,
			OwnerID:        ownerID,
			Role:           llm.RoleUser,
			Content:        results,
		}
		if _, err := lc.conversations.Append(ctx, resultMsg); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternalServer)
		}

		if execErr != nil {
			return apperrors.Wrap(execErr, apperrors.ErrToolExecutionFailed, failedTool)
		}
	}
}

// LockKey is the per-conversation lease key. The owner is part of the key so
// a caller guessing another owner's conversation id cannot contend its lease.
func LockKey(ownerID, conversationID string) string {
	return "chat:lock:" + ownerID + ":" + conversationID
}

// failedToolResult answers a tool_use whose execution failed. The model sees
// an is_error result; the loop error still surfaces to the caller.
func failedToolResult(toolUseID string) llm.ContentBlock {
	return llm.NewToolResultBlock(toolUseID, `{"error":"tool execution failed"}`, true)
}

// chatWithRetry retries transient provider failures with exponential backoff.
func (lc *LoopController) chatWithRetry(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= lc.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := lc.cfg.RetryBaseWait << (attempt - 1)
			lc.logger.Warn("retrying inference call",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := lc.provider.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !llm.IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
