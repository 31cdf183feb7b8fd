package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/config"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/task"
	"github.com/relaytboard/taskboard/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")

	log := logger.Get()
	log.Info().Msg("Starting remote worker...")

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	// Register request handlers
	handlers := map[string]transport.Handler{
		"ping": pingHandler,
		"echo": echoHandler,
		"time": timeHandler,
	}

	responder := transport.NewResponder(redisClient, transport.Config{
		StreamPrefix:  cfg.Transport.StreamPrefix,
		ConsumerGroup: cfg.Transport.ConsumerGroup,
		ConsumerName:  fmt.Sprintf("responder-%d", os.Getpid()),
		BlockTimeout:  cfg.Transport.BlockTimeout,
	}, handlers, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := responder.EnsureStreams(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create transport streams")
	}

	done := make(chan struct{})
	go func() {
		responder.Run(ctx)
		close(done)
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down remote worker...")
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Responder did not stop in time")
	}

	log.Info().Msg("Remote worker stopped")
}

// Example request handlers

func pingHandler(ctx context.Context, message string) (task.RemoteStatus, []byte, error) {
	return task.RemoteRecv, []byte("pong"), nil
}

// echoHandler answers "echo <rest>" with "<rest>".
func echoHandler(ctx context.Context, message string) (task.RemoteStatus, []byte, error) {
	rest := strings.TrimPrefix(message, "echo")
	return task.RemoteRecv, []byte(strings.TrimSpace(rest)), nil
}

func timeHandler(ctx context.Context, message string) (task.RemoteStatus, []byte, error) {
	return task.RemoteRecv, []byte(time.Now().UTC().Format(time.RFC3339)), nil
}
