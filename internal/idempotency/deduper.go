// Package idempotency deduplicates Telegram updates. Telegram redelivers
// updates after network hiccups or slow handlers, so every update id is
// claimed in Redis before processing.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	updateKeyPattern = "idempotency:update:%s"
	updateTTL        = 24 * time.Hour
)

// Deduper claims update keys so each Telegram update is handled once.
type Deduper struct {
	client *redis.Client
	log    *slog.Logger
}

// NewDeduper creates a Redis-backed update deduplicator.
func NewDeduper(client *redis.Client, log *slog.Logger) *Deduper {
	if log == nil {
		log = slog.Default()
	}

	return &Deduper{
		client: client,
		log:    log,
	}
}

// Claim attempts to take ownership of the given key. It returns true when
// this process is the first to see the update. On Redis failure the update is
// treated as fresh; reprocessing beats dropping, and downstream resolution is
// idempotent anyway.
func (d *Deduper) Claim(ctx context.Context, key string) bool {
	if d.client == nil {
		return true
	}

	redisKey := fmt.Sprintf(updateKeyPattern, key)
	claimed, err := d.client.SetNX(ctx, redisKey, 1, updateTTL).Result()
	if err != nil {
		d.log.Warn("idempotency claim failed, processing anyway",
			slog.String("key", key), slog.Any("error", err))
		return true
	}

	return claimed
}

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}
