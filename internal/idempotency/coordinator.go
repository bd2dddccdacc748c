package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const tokenPrefix = "idempotency:"

// Coordinator hands out idempotency tokens for outbound mutating calls.
// A token is tied to one logical action instance, identified by the
// caller-supplied correlation key; retries of that same action get the
// original token back for as long as it lives, so the provider can
// de-duplicate the side effect. Tokens expire after the configured window.
type Coordinator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCoordinator(client *redis.Client, ttl time.Duration) *Coordinator {
	return &Coordinator{client: client, ttl: ttl}
}

// TokenFor returns the token for the (kind, action, livemode, correlationKey)
// tuple, generating a fresh one on the first call. The correlation key is
// the caller's definition of "the same logical action", typically a request
// id, never derived implicitly here.
func (c *Coordinator) TokenFor(ctx context.Context, kind, action string, livemode bool, correlationKey string) (string, error) {
	key := tokenKey(kind, action, livemode, correlationKey)

	token := uuid.NewString()
	created, err := c.client.SetNX(ctx, key, token, c.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to reserve idempotency token: %w", err)
	}
	if created {
		return token, nil
	}

	// Another attempt of the same action got here first; reuse its token.
	existing, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Expired between SetNX and Get. Treat as a new action instance.
		return c.TokenFor(ctx, kind, action, livemode, correlationKey)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load idempotency token: %w", err)
	}
	return existing, nil
}

// Forget drops the token for a logical action, allowing the next attempt to
// be treated as a new action instance.
func (c *Coordinator) Forget(ctx context.Context, kind, action string, livemode bool, correlationKey string) error {
	key := tokenKey(kind, action, livemode, correlationKey)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete idempotency token: %w", err)
	}
	return nil
}

// PurgeExpired removes tokens that were stored without an expiry (older
// deployments, manual writes). Live tokens age out natively via TTL; this
// sweep only catches leaks. Returns the number of tokens purged.
func (c *Coordinator) PurgeExpired(ctx context.Context) (int, error) {
	var purged int
	var cursor uint64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, tokenPrefix+"*", 100).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to scan idempotency tokens: %w", err)
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				return purged, fmt.Errorf("failed to inspect token %s: %w", key, err)
			}
			if ttl == -1 {
				if err := c.client.Del(ctx, key).Err(); err != nil {
					return purged, fmt.Errorf("failed to purge token %s: %w", key, err)
				}
				purged++
			}
		}

		cursor = next
		if cursor == 0 {
			return purged, nil
		}
	}
}

func tokenKey(kind, action string, livemode bool, correlationKey string) string {
	return fmt.Sprintf("%s%s:%s:%t:%s", tokenPrefix, kind, action, livemode, correlationKey)
}
