package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/consumer"
	"github.com/habitlens/habitlens/internal/detector"
	"github.com/habitlens/habitlens/internal/notifier"
	"github.com/habitlens/habitlens/internal/stream"
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
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("redis_addr", cfg.Redis.Addr).
		Int("buffer_size", cfg.Detector.BufferSize).
		Int("min_occurrences", cfg.Detector.MinOccurrences).
		Msg("Configuration loaded")

	// Initialize Redis for cross-restart notification dedup
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test connection
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, notification dedup disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info().Msg("Connected to Redis")
		}
	}

	registry := detector.NewRegistry(cfg.Detector.BufferSize, cfg.Detector.MinOccurrences, cfg.Detector.SessionIdleTTL)

	detections := notifier.New(cfg.Kafka, rdb)
	defer detections.Close()

	processor := stream.NewProcessor(registry, detections)

	// Create Kafka consumer
	kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka, processor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	// Start consuming
	ctx, cancel := context.WithCancel(context.Background())
	go kafkaConsumer.Start(ctx)

	// Evict detectors for sessions that went quiet
	go func() {
		ticker := time.NewTicker(cfg.Detector.SessionIdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := registry.EvictIdle(); evicted > 0 {
					log.Info().Int("sessions", evicted).Int("active", registry.Active()).Msg("Evicted idle sessions")
				}
			}
		}
	}()

	log.Info().Msg("Stream detector started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	kafkaConsumer.Close()

	log.Info().Msg("Shutdown complete")
}
