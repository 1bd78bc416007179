package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const transcriptKeyPrefix = "transcript:"

// TranscriptCache keeps recently used transcripts in Redis so repeat lookups
// for a popular episode skip postgres entirely. Misses and cache errors are
// indistinguishable to callers; the store remains the source of truth.
type TranscriptCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTranscriptCache(client *redis.Client, ttl time.Duration) *TranscriptCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranscriptCache{client: client, ttl: ttl}
}

// Get returns the cached transcript for url, if present.
func (c *TranscriptCache) Get(ctx context.Context, url string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, transcriptKeyPrefix+url).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// cache degradation is not an error path for callers
			return "", false
		}
		return "", false
	}
	return val, val != ""
}

// Set stores the transcript for url with the configured TTL, best effort.
func (c *TranscriptCache) Set(ctx context.Context, url, transcript string) {
	if c == nil || c.client == nil || transcript == "" {
		return
	}
	_ = c.client.Set(ctx, transcriptKeyPrefix+url, transcript, c.ttl).Err()
}
