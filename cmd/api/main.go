package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unsent/internal/config"
	"unsent/internal/crypto"
	apihttp "unsent/internal/http"
	"unsent/internal/llm"
	"unsent/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	err = run(cfg, logger)
	if err != nil {
		logger.Error("api stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run arma las dependencias y sirve hasta la senal de apagado. Los recursos se liberan
// con defer antes de que main decida el codigo de salida.
func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer store.close()

	cipher, err := crypto.NewContentCipher(cfg.EncryptionSecret)
	if err != nil {
		return fmt.Errorf("cipher init: %w", err)
	}
	if !cipher.Enabled() {
		logger.Warn("encryption secret not configured, messages are stored in plain text")
	}

	var llmClient llm.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewOpenAIClient(llm.Options{
			BaseURL:    cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModel,
			AppName:    cfg.LLMAppName,
			Timeout:    time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
			MaxRetries: 2,
		}, logger)
	} else {
		logger.Warn("llm api key not configured, replies disabled and pet advisor answers with rules")
	}

	window := time.Duration(cfg.ReplyRateWindowMinutes) * time.Minute
	limiter := service.NewMemoryReplyRateLimiter(window, cfg.ReplyRateLimit)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory reply limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisReplyRateLimiter(redisClient, window, cfg.ReplyRateLimit)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured, authenticated routes will fail")
	}

	messageSvc := service.NewMessageService(store.messages, cipher)
	contextSvc := service.NewBasicContextService(messageSvc)
	replySvc := service.NewReplyService(llmClient, messageSvc, contextSvc, logger)
	conversationSvc := service.NewConversationService(store.conversations, messageSvc, replySvc, limiter, logger)
	advisorSvc := service.NewPetAdvisorService(store.pets, llmClient, logger)

	router := apihttp.NewRouter(logger, cfg.CORSOrigins, jwtSvc,
		apihttp.NewAnalysisHandler(logger),
		apihttp.NewConversationHandler(logger, conversationSvc),
		apihttp.NewPetHandler(logger, advisorSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
