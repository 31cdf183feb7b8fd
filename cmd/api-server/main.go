package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/relaytboard/taskboard/internal/api"
	"github.com/relaytboard/taskboard/internal/api/registry"
	"github.com/relaytboard/taskboard/internal/board"
	"github.com/relaytboard/taskboard/internal/config"
	"github.com/relaytboard/taskboard/internal/events"
	"github.com/relaytboard/taskboard/internal/heartbeat"
	"github.com/relaytboard/taskboard/internal/logger"
	"github.com/relaytboard/taskboard/internal/metrics"
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
	log.Info().Msg("Starting board server...")

	// Create Redis client (events, heartbeat, and the remote transport)
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
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}()

	// Create event publisher
	publisher := events.NewRedisPubSub(redisClient)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	// Create and start the board
	brd := board.New(board.Config{
		Secondaries:                      cfg.Board.Secondaries,
		MaxTasks:                         cfg.Board.MaxConcurrentTasks,
		StackSize:                        cfg.Board.StackSize,
		ReinsertAtHead:                   true,
		SignalPrimaryOnSecondaryInsert:   true,
		SuppressHelpingUnderPriorityLoad: true,
		ShutdownTimeout:                  cfg.Board.ShutdownTimeout,
	}, metrics.Collector{}, events.NewBoardPublisher(publisher))
	brd.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the remote-task transport actor
	if cfg.Transport.Enabled {
		actor := transport.NewActor(brd, redisClient, transport.Config{
			StreamPrefix:  cfg.Transport.StreamPrefix,
			ConsumerGroup: cfg.Transport.ConsumerGroup,
			BlockTimeout:  cfg.Transport.BlockTimeout,
			Backoff: transport.BackoffPolicy{
				MaxAttempts:    cfg.Transport.RetryMaxAttempts,
				InitialBackoff: cfg.Transport.RetryInitialBackoff,
				MaxBackoff:     cfg.Transport.RetryMaxBackoff,
				BackoffFactor:  cfg.Transport.RetryBackoffFactor,
				JitterFactor:   0.1,
			},
		})
		if err := actor.EnsureStreams(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create transport streams")
		}
		go actor.Run(ctx)
	}

	// Start the board heartbeat reporter
	reporter := heartbeat.NewReporter(redisClient, brd, uuid.New().String()[:8], 5*time.Second, 0)
	reporter.Start(ctx)

	// Register the task types submitters may create
	reg := registry.New()
	registerTaskTypes(reg)

	// Create server
	server := api.NewServer(cfg, brd, reg, publisher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start WebSocket hub
	server.Start(ctx)

	// Start HTTP server
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down board server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	reporter.Stop()
	server.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	brd.Destroy()
	brd.PrintRecords(os.Stdout)

	log.Info().Msg("Board server stopped")
}

// Example task types. Each runs as a coroutine on the board; blocking
// operations go through the board's own yield points, never through
// time.Sleep, which would stall a whole executor.

func registerTaskTypes(reg *registry.Registry) {
	reg.Register("echo", task.NewFunc("echo", echoTask))
	reg.Register("collatz", task.NewFunc("collatz", collatzTask))
	reg.Register("remote-ping", task.NewFunc("remote-ping", remotePingTask))
}

func echoTask(ctx *task.Context) {
	logger.WithFunc("echo").Info().
		Interface("args", ctx.Args()).
		Msg("echo task ran")
}

// collatzTask iterates the Collatz sequence from the submitted starting
// value, yielding between steps so other tasks interleave.
func collatzTask(ctx *task.Context) {
	n := 27
	if raw, ok := ctx.Args().(json.RawMessage); ok && len(raw) > 0 {
		var args struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(raw, &args); err == nil && args.N > 0 {
			n = args.N
		}
	}

	steps := 0
	for n != 1 {
		if n%2 == 0 {
			n /= 2
		} else {
			n = 3*n + 1
		}
		steps++
		ctx.Yield()
	}

	logger.WithFunc("collatz").Info().Int("steps", steps).Msg("collatz task finished")
}

// remotePingTask exercises the blocking remote round trip against whatever
// responder is consuming the request stream.
func remotePingTask(ctx *task.Context) {
	buf := make([]byte, 64)
	if !ctx.SpawnRemoteTask("ping", buf, 0, true) {
		logger.WithFunc("remote-ping").Warn().Msg("remote send refused")
		return
	}
	logger.WithFunc("remote-ping").Info().
		Str("response", string(ctx.RemoteData())).
		Msg("remote ping answered")
}
