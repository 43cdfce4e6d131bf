// Package cache keeps rendered report responses in Redis. Entries are keyed
// under a per-course version counter, so invalidating a course is a single
// INCR and stale entries simply age out.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Reports caches report payloads per course.
type Reports interface {
	// Get returns the payload and the course version it was looked up under.
	Get(ctx context.Context, courseID, key string) ([]byte, int64, bool)
	// Set stores val under version, the value Get returned before the
	// payload was computed. A course invalidated in between leaves it unreachable.
	Set(ctx context.Context, courseID string, version int64, key string, val []byte)
	Invalidate(ctx context.Context, courseID string) error
}

// Redis is the Redis-backed Reports.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis creates a report cache with the given entry TTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: client, ttl: ttl, prefix: "weekendschool:report"}
}

func (c *Redis) versionKey(courseID string) string {
	return c.prefix + ":ver:" + courseID
}

func (c *Redis) version(ctx context.Context, courseID string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(courseID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *Redis) dataKey(courseID string, version int64, key string) string {
	return c.prefix + ":" + courseID + ":" + strconv.FormatInt(version, 10) + ":" + key
}

// Get returns a cached payload and the current course version. Redis errors
// count as a miss with version -1, which Set ignores.
func (c *Redis) Get(ctx context.Context, courseID, key string) ([]byte, int64, bool) {
	v, err := c.version(ctx, courseID)
	if err != nil {
		return nil, -1, false
	}
	data, err := c.client.Get(ctx, c.dataKey(courseID, v, key)).Bytes()
	if err != nil {
		return nil, v, false
	}
	return data, v, true
}

// Set stores a payload under version. Failures are ignored.
func (c *Redis) Set(ctx context.Context, courseID string, version int64, key string, val []byte) {
	if version < 0 {
		return
	}
	_ = c.client.Set(ctx, c.dataKey(courseID, version, key), val, c.ttl).Err()
}

// Invalidate drops every cached payload of courseID.
func (c *Redis) Invalidate(ctx context.Context, courseID string) error {
	return c.client.Incr(ctx, c.versionKey(courseID)).Err()
}

// Nop never caches.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]byte, int64, bool) { return nil, -1, false }
func (Nop) Set(context.Context, string, int64, string, []byte)        {}
func (Nop) Invalidate(context.Context, string) error                  { return nil }
