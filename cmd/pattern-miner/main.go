package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/enricher"
	"github.com/habitlens/habitlens/internal/goals"
	"github.com/habitlens/habitlens/internal/insights"
	"github.com/habitlens/habitlens/internal/miner"
	"github.com/habitlens/habitlens/internal/server"
	"github.com/habitlens/habitlens/internal/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/habitlens.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	log.Info().
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Str("redis_addr", cfg.Redis.Addr).
		Int("http_port", cfg.Server.HTTPPort).
		Int("min_support", cfg.Mining.MinSupport).
		Dur("max_gap", cfg.Mining.MaxGap).
		Msg("Configuration loaded")

	// Initialize ClickHouse (event store)
	ch, err := storage.NewClickHouse(cfg.ClickHouse, cfg.Mining.IgnoreDomains)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	log.Info().Msg("Connected to ClickHouse")

	// Initialize Postgres (pattern and insight store)
	pg, err := storage.NewPostgres(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer pg.Close()
	log.Info().Msg("Connected to Postgres")

	// Initialize Redis
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test connection
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, mining locks and rate limits disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info().Msg("Connected to Redis")
		}
	}

	// Wire the mining pipeline
	patternMiner := miner.New(ch, pg, rdb, cfg.Mining)
	synthesizer := insights.NewSynthesizer(
		pg, ch, pg,
		enricher.New(ch),
		goals.NewClient(cfg.Goals),
		cfg.Mining.MinSupport,
		cfg.Mining.PatternLimit,
	)

	auth := server.NewAuthenticator(pg, rdb, cfg.RateLimit)
	srv := server.New(patternMiner, synthesizer, pg, pg, auth, cfg.Mining.MinSupport, cfg.Mining.PatternLimit)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Pattern miner API started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Periodic sweep over recently active users
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Mining.SweepInterval > 0 {
		go runSweep(ctx, patternMiner, ch, cfg.Mining)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}

// runSweep periodically re-mines patterns for every user with recent
// events, so insights stay fresh without an explicit API call.
func runSweep(ctx context.Context, m *miner.Miner, ch *storage.ClickHouse, cfg config.MiningConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			since := time.Now().AddDate(0, 0, -cfg.LookbackDays)
			users, err := ch.ActiveUsers(ctx, since)
			if err != nil {
				log.Error().Err(err).Msg("Failed to list active users for sweep")
				continue
			}

			for _, userID := range users {
				res, err := m.Mine(ctx, userID)
				if err != nil {
					log.Error().Err(err).Str("user_id", userID).Msg("Sweep mining failed")
					continue
				}
				log.Debug().
					Str("user_id", userID).
					Int("patterns_found", res.PatternsFound).
					Int("patterns_stored", res.PatternsStored).
					Msg("Sweep mining done")
			}

			log.Info().Int("users", len(users)).Msg("Mining sweep complete")
		}
	}
}
