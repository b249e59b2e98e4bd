package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Mining     MiningConfig     `yaml:"mining"`
	Detector   DetectorConfig   `yaml:"detector"`
	Goals      GoalsConfig      `yaml:"goals"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

type KafkaConfig struct {
	Brokers       []string          `yaml:"brokers"`
	Topics        map[string]string `yaml:"topics"`
	ConsumerGroup string            `yaml:"consumer_group"`
}

type ClickHouseConfig struct {
	Addr         string `yaml:"addr"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
}

type MiningConfig struct {
	LookbackDays  int           `yaml:"lookback_days"`
	MinSupport    int           `yaml:"min_support"`
	MaxGap        time.Duration `yaml:"max_gap"`
	IgnoreDomains []string      `yaml:"ignore_domains"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	PatternLimit  int           `yaml:"pattern_limit"`
}

type DetectorConfig struct {
	BufferSize     int           `yaml:"buffer_size"`
	MinOccurrences int           `yaml:"min_occurrences"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
}

type GoalsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8084
	}
	if cfg.ClickHouse.MaxOpenConns == 0 {
		cfg.ClickHouse.MaxOpenConns = 10
	}
	if cfg.ClickHouse.MaxIdleConns == 0 {
		cfg.ClickHouse.MaxIdleConns = 5
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 20
	}

	if cfg.Mining.LookbackDays == 0 {
		cfg.Mining.LookbackDays = 7
	}
	if cfg.Mining.MinSupport == 0 {
		cfg.Mining.MinSupport = 3
	}
	if cfg.Mining.MaxGap == 0 {
		cfg.Mining.MaxGap = 5 * time.Minute
	}
	if cfg.Mining.LockTTL == 0 {
		cfg.Mining.LockTTL = 2 * time.Minute
	}
	if cfg.Mining.PatternLimit == 0 {
		cfg.Mining.PatternLimit = 100
	}

	if cfg.Detector.BufferSize == 0 {
		cfg.Detector.BufferSize = 50
	}
	if cfg.Detector.MinOccurrences == 0 {
		cfg.Detector.MinOccurrences = 3
	}
	if cfg.Detector.SessionIdleTTL == 0 {
		cfg.Detector.SessionIdleTTL = 30 * time.Minute
	}

	if cfg.Goals.Timeout == 0 {
		cfg.Goals.Timeout = 10 * time.Second
	}

	return &cfg, nil
}
