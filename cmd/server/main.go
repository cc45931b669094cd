package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liubx8864/supportloop/internal/auth"
	chatbiz "github.com/liubx8864/supportloop/internal/chat/biz"
	chatdata "github.com/liubx8864/supportloop/internal/chat/data"
	chatservice "github.com/liubx8864/supportloop/internal/chat/service"
	"github.com/liubx8864/supportloop/internal/conf"
	"github.com/liubx8864/supportloop/internal/data"
	"github.com/liubx8864/supportloop/internal/llm"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	"github.com/liubx8864/supportloop/internal/pkg/sse"
	"github.com/liubx8864/supportloop/internal/pkg/workerpool"
	"github.com/liubx8864/supportloop/internal/server"
	supportbiz "github.com/liubx8864/supportloop/internal/support/biz"
	supportdata "github.com/liubx8864/supportloop/internal/support/data"
	"github.com/liubx8864/supportloop/internal/tools"
	"go.uber.org/zap"
)

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded")

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Support domain.
	customerRepo := supportdata.NewCustomerRepo(d.DB)
	orderRepo := supportdata.NewOrderRepo(d.DB)
	supportUseCase := supportbiz.NewSupportUseCase(customerRepo, orderRepo)

	// Tool registry and executor.
	registry := tools.NewRegistry()
	if err := tools.RegisterSupportTools(registry, supportUseCase); err != nil {
		log.Fatal("failed to register tools", zap.Error(err))
	}
	executor := tools.NewExecutor(registry, log.Named("tools"))

	// Inference provider.
	provider, err := llm.NewProvider(llm.Config{
		Provider: config.LLM.Provider,
		APIKey:   config.LLM.APIKey,
		BaseURL:  config.LLM.BaseURL,
	})
	if err != nil {
		log.Fatal("failed to create llm provider", zap.Error(err))
	}
	if err := provider.ValidateConfig(); err != nil {
		log.Fatal("invalid llm configuration", zap.Error(err))
	}

	// Conversation store with SSE push.
	hub := sse.NewHub()
	notifier := chatservice.NewSSENotifier(hub)
	conversationRepo := chatdata.NewConversationRepo(d.DB)
	conversations := chatbiz.NewConversationUseCase(conversationRepo, notifier, llm.NewTokenCounter())

	loop := chatbiz.NewLoopController(
		conversations,
		provider,
		executor,
		registry,
		d.Redis,
		chatbiz.LoopConfig{
			Model:         config.LLM.Model,
			SystemPrompt:  config.Chat.SystemPrompt,
			MaxTokens:     config.LLM.MaxTokens,
			MaxToolRounds: config.Chat.MaxToolRounds,
			MaxRetries:    config.Chat.MaxRetries,
			RetryBaseWait: config.Chat.RetryBaseWait,
			LockTTL:       config.Chat.LockTTL,
		},
		log.Named("loop"),
	)

	pool, err := workerpool.New(&config.Pool, log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}

	tokenManager := auth.NewTokenManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
	chatService := chatservice.NewChatService(loop, conversations, hub, pool, d.Redis, log.Named("chat"))

	httpServer := server.NewHTTPServer(config, log.Logger, tokenManager, chatService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pool.Shutdown(ctx); err != nil {
		log.Warn("worker pool shutdown incomplete", zap.Error(err))
	}
	if err := httpServer.Stop(ctx); err != nil {
		log.Error("failed to stop http server", zap.Error(err))
	}
}
