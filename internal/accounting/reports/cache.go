package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "ledger:reports"
	versionKey = keyPrefix + ":version"
)

// Cache stores rendered reports in Redis under a ledger-wide version. Every
// committed mutation bumps the version, so stale copies are never read and
// simply expire after ttl.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a cache over client. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current ledger version, starting at 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	// SETNX keeps a concurrent Bump from being overwritten by the initialiser.
	if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("reports cache: init version: %w", err)
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("reports cache: read version: %w", err)
	}
	return ver, nil
}

// BuildKey returns ledger:reports:<parts...>:v<version>.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	base := keyPrefix
	if len(parts) > 0 {
		base += ":" + strings.Join(parts, ":")
	}
	if !c.enabled() {
		return base, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// FetchJSON decodes the cached value at key into dest, or runs loader and
// caches its result. A failed write still returns the loaded value.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("reports cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(payload, dest); jsonErr == nil {
				return nil
			}
			// Undecodable payloads come from an older report shape; rebuild.
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("reports cache: get %s: %w", key, err)
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("reports cache: encode: %w", err)
	}
	if c.enabled() {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached report.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("reports cache: bump: %w", err)
	}
	return nil
}
