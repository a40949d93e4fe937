package redis_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	accountsredis "github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/redis"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T) (*accountsredis.Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return accountsredis.NewSessions(rdb, clockx.System{}), mr
}

func TestBindGetClear(t *testing.T) {
	ctx := context.Background()
	s, mr := newSessions(t)

	fp, err := s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Empty(t, fp)

	require.NoError(t, s.BindRefreshToken(ctx, "acct", "fp-1", time.Now().Add(time.Hour)))
	fp, err = s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, "fp-1", fp)
	require.True(t, mr.Exists(accountsredis.DefaultKeyPrefix+"acct"))
	require.InDelta(t, time.Hour.Seconds(), mr.TTL(accountsredis.DefaultKeyPrefix+"acct").Seconds(), 5)

	require.NoError(t, s.ClearRefreshToken(ctx, "acct"))
	require.NoError(t, s.ClearRefreshToken(ctx, "acct"))
	fp, err = s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Empty(t, fp)
}

func TestBindingExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newSessions(t)

	require.NoError(t, s.BindRefreshToken(ctx, "acct", "fp-1", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	fp, err := s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Empty(t, fp)
	require.ErrorIs(t, s.RotateRefreshToken(ctx, "acct", "fp-1", "fp-2", time.Now().Add(time.Hour)), store.ErrStale)
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessions(t)
	exp := time.Now().Add(time.Hour)

	require.ErrorIs(t, s.RotateRefreshToken(ctx, "acct", "fp-1", "fp-2", exp), store.ErrStale, "nothing bound")

	require.NoError(t, s.BindRefreshToken(ctx, "acct", "fp-1", exp))
	require.NoError(t, s.RotateRefreshToken(ctx, "acct", "fp-1", "fp-2", exp))
	require.ErrorIs(t, s.RotateRefreshToken(ctx, "acct", "fp-1", "fp-3", exp), store.ErrStale, "reuse")
	require.ErrorIs(t, s.RotateRefreshToken(ctx, "acct", "", "fp-3", exp), store.ErrStale)

	fp, err := s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, "fp-2", fp)
}

func TestRotateHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessions(t)
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.BindRefreshToken(ctx, "acct", "start", exp))

	const racers = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stale int
	)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RotateRefreshToken(ctx, "acct", "start", "next-"+string(rune('a'+i)), exp)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrStale):
				stale++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, racers-1, stale)
}

func TestRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	s := accountsredis.NewSessions(rdb, clockx.System{})
	mr.Close()

	err = s.RotateRefreshToken(ctx, "acct", "a", "b", time.Now().Add(time.Hour))
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrStale)
	require.Error(t, s.Ping(ctx))
}

func TestPastExpiryClears(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessions(t)
	require.NoError(t, s.BindRefreshToken(ctx, "acct", "fp-1", time.Now().Add(time.Hour)))
	require.NoError(t, s.BindRefreshToken(ctx, "acct", "fp-2", time.Now().Add(-time.Minute)))

	fp, err := s.GetRefreshToken(ctx, "acct")
	require.NoError(t, err)
	require.Empty(t, fp)
}
