package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-push-relay/internal/application/push"
	"github.com/go-push-relay/internal/application/subscription"
	"github.com/go-push-relay/internal/config"
	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
	"github.com/go-push-relay/internal/infrastructure/kvstore"
	"github.com/go-push-relay/internal/infrastructure/sns"
	"github.com/go-push-relay/internal/infrastructure/webpush"
	"github.com/go-push-relay/internal/pkg/logging"
	transporthttp "github.com/go-push-relay/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(logging.Options{JSON: cfg.LogJSON, Debug: cfg.LogDebug, Service: "push-api"})
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	store, closeStore, err := kvstore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// Sender keys (optional: the service starts and reports keysConfigured=false).
	keys, err := webpush.LoadKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		logger.Warn("push sender keys not available", "err", err)
		keys = nil
	}

	// Token auth (optional: operator and recipient routes answer 503 without it).
	var tokens *jwtinfra.Provider
	if cfg.OperatorJWTPublicKeyPath != "" {
		if tokens, err = jwtinfra.NewProvider("", cfg.OperatorJWTPublicKeyPath, cfg.OperatorJWTExpiry); err != nil {
			logger.Warn("token auth not available", "err", err)
			tokens = nil
		}
	}

	// Broadcast report publishing (optional).
	var publisher push.ReportPublisher
	if cfg.SNSTopicARN != "" {
		if p, err := sns.NewPublisher(ctx, cfg); err == nil {
			publisher = p
		} else {
			logger.Warn("SNS report publisher not available", "err", err)
		}
	}

	svc := push.NewService(push.Deps{
		Registry:  subscription.NewRegistry(store, cfg.Push.SubscriptionTTL),
		Relay:     webpush.NewSender(cfg.Push.Timeout, cfg.Push.TTL, cfg.Push.Urgency),
		Store:     store,
		Keys:      keys,
		Subject:   cfg.VAPIDSubject,
		Push:      cfg.Push,
		Publisher: publisher,
		Logger:    logger,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Push:   svc,
		Tokens: tokens,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // broadcasts answer after the last delivery
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
		return
	}
	logger.Info("server stopped")
}
