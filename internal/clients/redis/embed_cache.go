// Package redis holds the optional Redis-backed embedding cache. Search
// traffic repeats the same handful of queries heavily, and an embedding
// round trip dominates the request budget, so cached vectors are served
// when REDIS_ADDR is configured.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

type EmbedCache interface {
	Get(ctx context.Context, fingerprint string) ([]float32, bool)
	Set(ctx context.Context, fingerprint string, vector []float32)
	Close() error
}

type embedCache struct {
	log    *logger.Logger
	client *goredis.Client
	ttl    time.Duration
}

func NewEmbedCache(log *logger.Logger) (EmbedCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	ttl := 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("EMBED_CACHE_TTL_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttl = time.Duration(parsed) * time.Second
		}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &embedCache{
		log:    log.With("service", "EmbedCache"),
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *embedCache) Get(ctx context.Context, fingerprint string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, cacheKey(fingerprint)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Embed cache get failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		c.log.Warn("Embed cache entry corrupt", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (c *embedCache) Set(ctx context.Context, fingerprint string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(fingerprint), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Embed cache set failed", "error", err)
	}
}

func (c *embedCache) Close() error {
	return c.client.Close()
}

func cacheKey(fingerprint string) string {
	return "embed:" + fingerprint
}
