// SPDX-License-Identifier: MIT

// Package config assembles the immutable process configuration from
// environment variables. Runtime-mutable review settings (thresholds,
// worker count, min-articles) live in the fast-state store instead; see
// the state package.
package config

import (
	"fmt"
	"time"
)

// Config holds all static settings of the orchestration daemon.
type Config struct {
	// ListenAddr is the bind address of the admin/intake API.
	ListenAddr string

	// DBPath is the SQLite database file.
	DBPath string

	// RedisAddr, RedisPassword and RedisDB configure the fast-state store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Collaborator base URLs.
	LightReviewerURL string
	HeavyReviewerURL string
	WriterURL        string
	EditorURL        string
	TTSURL           string
	PublisherURL     string

	// Dedup.
	DedupTTL time.Duration

	// Review router.
	QueueCapacity    int
	PausePoll        time.Duration
	LightSoftTimeout time.Duration
	LightHardTimeout time.Duration
	HeavySoftTimeout time.Duration
	HeavyHardTimeout time.Duration
	MaxBodyBytes     int64

	// Collections.
	StalenessMax  time.Duration
	CollectionTTL time.Duration
	SweepInterval time.Duration

	// Cadence.
	TickInterval time.Duration
	GroupLockTTL time.Duration

	// Production lock.
	ProductionLockTTL time.Duration
	ManualPauseTTL    time.Duration

	// Episode pipeline.
	PublishPlatforms []string
	WriterTimeout    time.Duration
	EditorTimeout    time.Duration
	MetadataTimeout  time.Duration
	TTSTimeout       time.Duration
	PublisherTimeout time.Duration
}

// FromEnv builds a Config from environment variables, applying the
// documented defaults for anything unset.
func FromEnv() Config {
	return Config{
		ListenAddr: ParseString("OVERSEER_LISTEN", ":8080"),
		DBPath:     ParseString("OVERSEER_DB_PATH", "overseer.db"),

		RedisAddr:     ParseString("OVERSEER_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: ParseString("OVERSEER_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("OVERSEER_REDIS_DB", 0),

		LightReviewerURL: ParseString("OVERSEER_LIGHT_REVIEWER_URL", "http://127.0.0.1:9101"),
		HeavyReviewerURL: ParseString("OVERSEER_HEAVY_REVIEWER_URL", "http://127.0.0.1:9102"),
		WriterURL:        ParseString("OVERSEER_WRITER_URL", "http://127.0.0.1:9103"),
		EditorURL:        ParseString("OVERSEER_EDITOR_URL", "http://127.0.0.1:9104"),
		TTSURL:           ParseString("OVERSEER_TTS_URL", "http://127.0.0.1:9105"),
		PublisherURL:     ParseString("OVERSEER_PUBLISHER_URL", "http://127.0.0.1:9106"),

		DedupTTL: ParseDuration("OVERSEER_DEDUP_TTL", 720*time.Hour),

		QueueCapacity:    ParseInt("OVERSEER_REVIEW_QUEUE_CAP", 1024),
		PausePoll:        ParseDuration("OVERSEER_PAUSE_POLL", 10*time.Second),
		LightSoftTimeout: ParseDuration("OVERSEER_LIGHT_SOFT_TIMEOUT", 500*time.Millisecond),
		LightHardTimeout: ParseDuration("OVERSEER_LIGHT_TIMEOUT", 3*time.Second),
		HeavySoftTimeout: ParseDuration("OVERSEER_HEAVY_SOFT_TIMEOUT", 5*time.Second),
		HeavyHardTimeout: ParseDuration("OVERSEER_HEAVY_TIMEOUT", 30*time.Second),
		MaxBodyBytes:     int64(ParseInt("OVERSEER_MAX_BODY_BYTES", 512*1024)),

		StalenessMax:  ParseDuration("OVERSEER_STALENESS_MAX", 72*time.Hour),
		CollectionTTL: ParseDuration("OVERSEER_COLLECTION_TTL", 24*time.Hour),
		SweepInterval: ParseDuration("OVERSEER_SWEEP_INTERVAL", time.Hour),

		TickInterval: ParseDuration("OVERSEER_TICK_INTERVAL", 2*time.Hour),
		GroupLockTTL: ParseDuration("OVERSEER_GROUP_LOCK_TTL", time.Hour),

		ProductionLockTTL: ParseDuration("OVERSEER_PRODUCTION_LOCK_TTL", 2*time.Hour),
		ManualPauseTTL:    ParseDuration("OVERSEER_MANUAL_PAUSE_TTL", 24*time.Hour),

		PublishPlatforms: ParseList("OVERSEER_PUBLISH_PLATFORMS", nil),
		WriterTimeout:    ParseDuration("OVERSEER_WRITER_TIMEOUT", 180*time.Second),
		EditorTimeout:    ParseDuration("OVERSEER_EDITOR_TIMEOUT", 120*time.Second),
		MetadataTimeout:  ParseDuration("OVERSEER_METADATA_TIMEOUT", 30*time.Second),
		TTSTimeout:       ParseDuration("OVERSEER_TTS_TIMEOUT", 1800*time.Second),
		PublisherTimeout: ParseDuration("OVERSEER_PUBLISHER_TIMEOUT", 60*time.Second),
	}
}

// Validate rejects configurations that cannot possibly run.
func (c Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("config: queue capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.DedupTTL <= 0 {
		return fmt.Errorf("config: dedup TTL must be positive, got %s", c.DedupTTL)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	}
	if c.GroupLockTTL <= 0 {
		return fmt.Errorf("config: group lock TTL must be positive, got %s", c.GroupLockTTL)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("config: redis address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}
