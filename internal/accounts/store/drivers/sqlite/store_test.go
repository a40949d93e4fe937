package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "accounts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newAccount(username string) domain.Account {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := newAccount("alice")
	require.NoError(t, s.Accounts().CreateAccount(ctx, a))

	t.Run("lookups", func(t *testing.T) {
		byID, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a.Username, byID.Username)
		require.Equal(t, a.PasswordHash, byID.PasswordHash)
		require.True(t, a.CreatedAt.Equal(byID.CreatedAt))

		byName, err := s.Accounts().GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, a.ID, byName.ID)

		byEmail, err := s.Accounts().GetAccountByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, a.ID, byEmail.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Accounts().GetAccountByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Accounts().GetAccountByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := newAccount("alice")
		dup.Email = "other@example.com"
		require.ErrorIs(t, s.Accounts().CreateAccount(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := newAccount("alice2")
		dup.Email = a.Email
		require.ErrorIs(t, s.Accounts().CreateAccount(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("update profile", func(t *testing.T) {
		u := a
		u.FullName = "Alice Liddell"
		u.AvatarURL = "https://cdn.example.com/a.png"
		u.UpdatedAt = a.UpdatedAt.Add(time.Hour)
		require.NoError(t, s.Accounts().UpdateProfile(ctx, u))

		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "Alice Liddell", got.FullName)
		require.Equal(t, "https://cdn.example.com/a.png", got.AvatarURL)
		require.True(t, u.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("update profile email clash", func(t *testing.T) {
		b := newAccount("bob")
		require.NoError(t, s.Accounts().CreateAccount(ctx, b))
		b.Email = a.Email
		require.ErrorIs(t, s.Accounts().UpdateProfile(ctx, b), store.ErrAlreadyExists)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, s.Accounts().UpdatePasswordHash(ctx, a.ID, "new-hash", time.Now()))
		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)

		err = s.Accounts().UpdatePasswordHash(ctx, idx.New().String(), "x", time.Now())
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := newAccount("carol")
	require.NoError(t, s.Accounts().CreateAccount(ctx, a))

	sessions := s.Sessions()
	exp := time.Now().Add(time.Hour)

	fp, err := sessions.GetRefreshToken(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, fp, "new accounts have no binding")

	require.NoError(t, sessions.BindRefreshToken(ctx, a.ID, "fp-1", exp))
	fp, err = sessions.GetRefreshToken(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-1", fp)

	// Last write wins.
	require.NoError(t, sessions.BindRefreshToken(ctx, a.ID, "fp-2", exp))

	require.ErrorIs(t, sessions.RotateRefreshToken(ctx, a.ID, "fp-1", "fp-3", exp), store.ErrStale)
	require.NoError(t, sessions.RotateRefreshToken(ctx, a.ID, "fp-2", "fp-3", exp))
	fp, err = sessions.GetRefreshToken(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "fp-3", fp)

	require.NoError(t, sessions.ClearRefreshToken(ctx, a.ID))
	require.NoError(t, sessions.ClearRefreshToken(ctx, a.ID), "clear is idempotent")
	fp, err = sessions.GetRefreshToken(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, fp)

	// An empty binding never matches, not even an empty presented value.
	require.ErrorIs(t, sessions.RotateRefreshToken(ctx, a.ID, "", "fp-4", exp), store.ErrStale)
	require.ErrorIs(t, sessions.RotateRefreshToken(ctx, a.ID, "fp-3", "fp-4", exp), store.ErrStale)

	require.ErrorIs(t, sessions.BindRefreshToken(ctx, idx.New().String(), "fp", exp), store.ErrNotFound)
	_, err = sessions.GetRefreshToken(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRotateHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := newAccount("dave")
	require.NoError(t, s.Accounts().CreateAccount(ctx, a))
	require.NoError(t, s.Sessions().BindRefreshToken(ctx, a.ID, "start", time.Now().Add(time.Hour)))

	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		stale   int
		started = make(chan struct{})
	)
	for i := range racers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-started
			err := s.Sessions().RotateRefreshToken(ctx, a.ID, "start", idx.New().String(), time.Now().Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrStale):
				stale++
			default:
				t.Errorf("racer %d: %v", i, err)
			}
		}(i)
	}
	close(started)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, racers-1, stale)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		a := newAccount("erin")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Accounts().CreateAccount(ctx, a))
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Accounts().GetAccountByID(ctx, a.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("commit", func(t *testing.T) {
		a := newAccount("frank")
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Accounts().CreateAccount(ctx, a)
		}))
		_, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
	})

	t.Run("no nesting", func(t *testing.T) {
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			require.Error(t, tx.WithTx(ctx, func(store.Tx) error { return nil }))
			return nil
		}))
	})
}
