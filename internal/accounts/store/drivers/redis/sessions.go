// Package redis keeps refresh token bindings in Redis instead of on the
// accounts row, for deployments that share sessions between instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces binding keys: <prefix><account id>.
const DefaultKeyPrefix = "accounts:session:"

const (
	rotateStatusStale   int64 = 0
	rotateStatusRotated int64 = 1
)

// KEYS[1] binding key; ARGV[1] presented, ARGV[2] next, ARGV[3] ttl ms.
const rotateScript = `
local cur = redis.call("GET", KEYS[1])
if not cur or cur == "" or cur ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// Sessions implements store.Sessions. Each binding is a string key whose TTL
// is the refresh token's remaining lifetime, so expired bindings disappear
// on their own.
//
// Redis does not know which accounts exist; BindRefreshToken never returns
// store.ErrNotFound and callers look the account up first.
type Sessions struct {
	rdb    redis.UniversalClient
	clock  clockx.Clock
	prefix string
}

// NewSessions returns a Redis backed binding store.
func NewSessions(rdb redis.UniversalClient, clock clockx.Clock) *Sessions {
	if clock == nil {
		clock = clockx.System{}
	}
	return &Sessions{rdb: rdb, clock: clock, prefix: DefaultKeyPrefix}
}

// WithPrefix returns a copy using a different key prefix.
func (s *Sessions) WithPrefix(prefix string) *Sessions {
	c := *s
	c.prefix = prefix
	return &c
}

func (s *Sessions) key(accountID string) string { return s.prefix + accountID }

// ttl is the time left until expiresAt, or 0 when it already passed.
func (s *Sessions) ttl(expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(s.clock.Now())
	if d < time.Millisecond {
		return 0
	}
	return d
}

func (s *Sessions) BindRefreshToken(ctx context.Context, accountID, fingerprint string, expiresAt time.Time) error {
	ttl := s.ttl(expiresAt)
	if fingerprint == "" || ttl == 0 {
		return s.ClearRefreshToken(ctx, accountID)
	}

	if err := s.rdb.Set(ctx, s.key(accountID), fingerprint, ttl).Err(); err != nil {
		return fmt.Errorf("redis: bind: %w", err)
	}
	return nil
}

func (s *Sessions) RotateRefreshToken(ctx context.Context, accountID, presented, next string, expiresAt time.Time) error {
	ttl := s.ttl(expiresAt)
	if presented == "" || next == "" || ttl == 0 {
		return store.ErrStale
	}

	status, err := rotateLua.Run(ctx, s.rdb, []string{s.key(accountID)},
		presented, next, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis: rotate: %w", err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusStale:
		return store.ErrStale
	default:
		return fmt.Errorf("redis: rotate: unexpected status %d", status)
	}
}

func (s *Sessions) ClearRefreshToken(ctx context.Context, accountID string) error {
	if err := s.rdb.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}

func (s *Sessions) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	fp, err := s.rdb.Get(ctx, s.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: get: %w", err)
	}
	return fp, nil
}

// Ping checks the connection for readiness probes.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
