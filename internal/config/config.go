package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	DatabaseURL             string
	StaffTokenHash          string
	NotifyPollInterval      time.Duration
	NotifyBatchSize         int
	OutboxRetention         time.Duration
	RateLimitPerMinute      int
	RateLimitBurst          int
	QueueRateLimitPerMinute int
	QueueRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                    port,
		DatabaseURL:             os.Getenv("DB_DSN"),
		StaffTokenHash:          os.Getenv("STAFF_TOKEN_HASH"),
		NotifyPollInterval:      readDurationSeconds("NOTIFY_POLL_SECONDS", 1),
		NotifyBatchSize:         readInt("NOTIFY_BATCH_SIZE", 100),
		OutboxRetention:         readDurationSeconds("OUTBOX_RETENTION_SECONDS", 3600),
		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		QueueRateLimitPerMinute: readInt("QUEUE_RATE_LIMIT_PER_MIN", 600),
		QueueRateLimitBurst:     readInt("QUEUE_RATE_LIMIT_BURST", 120),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
