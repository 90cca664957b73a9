package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

const roleCacheKeyPrefix = "ticket_role:"

const defaultRoleCacheTTL = time.Hour

// RoleCache remembers resolved requester roles across restarts.
type RoleCache struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRoleCache returns nil for a nil client; a nil cache always misses.
func NewRoleCache(redisClient *redis.Client, ttl time.Duration) *RoleCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRoleCacheTTL
	}
	return &RoleCache{
		redis:  redisClient,
		tracer: otel.Tracer("staydesk/tickets-role-cache"),
		ttl:    ttl,
	}
}

// Get returns the cached role. ok is false on a miss.
func (c *RoleCache) Get(ctx context.Context, ticketID string) (intake.Role, bool, error) {
	if c == nil || c.redis == nil {
		return intake.RoleUnknown, false, nil
	}
	ctx, span := c.tracer.Start(ctx, "tickets.role_cache.get")
	defer span.End()

	val, err := c.redis.Get(ctx, roleCacheKey(ticketID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return intake.RoleUnknown, false, nil
		}
		span.RecordError(err)
		return intake.RoleUnknown, false, fmt.Errorf("tickets: read role cache: %w", err)
	}
	return intake.Role(val), true, nil
}

// Set stores a role. Unknown roles are not cached.
func (c *RoleCache) Set(ctx context.Context, ticketID string, role intake.Role) error {
	if c == nil || c.redis == nil || role == intake.RoleUnknown || role == "" {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "tickets.role_cache.set")
	defer span.End()

	if err := c.redis.Set(ctx, roleCacheKey(ticketID), string(role), c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("tickets: write role cache: %w", err)
	}
	return nil
}

func roleCacheKey(ticketID string) string {
	return roleCacheKeyPrefix + ticketID
}
