package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safrareport/auth-service/internal/auth/domain"
)

// SessionCache keeps session records in Redis so validation does not hit
// Postgres on every request. Keys expire with the session, and every
// invalidation path deletes the key, so the cache never serves a dead
// session longer than the store would.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func key(id string) string {
	return "session:" + id
}

func (c *SessionCache) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session cache get: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// A corrupt entry is treated as a miss; the store is the truth.
		_ = c.client.Del(ctx, key(id)).Err()
		return nil, nil
	}
	return &session, nil
}

func (c *SessionCache) Set(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session cache marshal: %w", err)
	}

	ttl := c.ttl
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	return c.client.Set(ctx, key(session.ID), raw, ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, key(id)).Err()
}
