package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin read-through JSON cache over Redis. A nil client turns
// every operation into a no-op so the service keeps working without Redis.
type Cache struct {
	client   *redis.Client
	lifespan time.Duration
}

func New(client *redis.Client, lifespan time.Duration) *Cache {
	if lifespan <= 0 {
		lifespan = time.Hour
	}
	return &Cache{client: client, lifespan: lifespan}
}

// NewFromEnv connects using REDIS_ADDR / REDIS_PASSWORD. Missing address
// yields a disabled cache rather than an error.
func NewFromEnv() *Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("[INFO] REDIS_ADDR not set, payload cache disabled")
		return New(nil, 0)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return New(client, time.Hour)
}

// Key builds a cache key inside a division's namespace.
func Key(division string, parts ...string) string {
	segs := append([]string{"budget", strings.ToUpper(strings.TrimSpace(division))}, parts...)
	return strings.Join(segs, ":")
}

// GetJSON loads and unmarshals a cached value. Returns false on miss or any
// Redis/unmarshal failure.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Println("[ERROR] cache unmarshal failed for", key, ":", err)
		return false
	}
	return true
}

// SetJSON stores a value best-effort; failures are logged and swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Println("[ERROR] cache marshal failed for", key, ":", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.lifespan).Err(); err != nil {
		log.Println("[ERROR] cache set failed for", key, ":", err)
	}
}

// InvalidateDivision drops every cached payload in the division's namespace.
// Best-effort: a stale read is preferable to failing the write that
// triggered the invalidation.
func (c *Cache) InvalidateDivision(ctx context.Context, division string) {
	if c == nil || c.client == nil {
		return
	}
	pattern := Key(division, "*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Println("[ERROR] cache scan failed for", pattern, ":", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Println("[ERROR] cache invalidation failed for", pattern, ":", err)
		return
	}
	log.Printf("[INFO] cache invalidated %d keys for %s", len(keys), pattern)
}

// Close releases the underlying client.
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}
