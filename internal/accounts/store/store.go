package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStale is returned by RotateRefreshToken when the bound value no
	// longer matches the one presented, i.e. someone else rotated or cleared
	// it first. Nothing was written.
	ErrStale = errors.New("store: stale refresh token binding")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories so a Tx hands out the same
// repos bound to the transaction.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	//
	// Only use the repos of the Tx passed to fn; the sqlite driver runs on a
	// single connection and calling the outer Store inside fn will block.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername looks up by the lower-cased username.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// GetAccountByEmail looks up by the lower-cased email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account. A clash on username or email is
	// ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateProfile writes full name, email, avatar and cover image URLs and
	// updated_at from a.
	UpdateProfile(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash replaces the password hash.
	UpdatePasswordHash(ctx context.Context, id, hash string, updatedAt time.Time) error
}

// Sessions binds at most one refresh token to each account. Values are token
// fingerprints, never raw tokens. An empty fingerprint means no binding.
type Sessions interface {
	// BindRefreshToken overwrites the binding, last write wins.
	BindRefreshToken(ctx context.Context, accountID, fingerprint string, expiresAt time.Time) error

	// RotateRefreshToken replaces presented with next only if presented is
	// still the bound value, otherwise ErrStale.
	RotateRefreshToken(ctx context.Context, accountID, presented, next string, expiresAt time.Time) error

	// ClearRefreshToken drops the binding. Clearing an empty binding is not
	// an error.
	ClearRefreshToken(ctx context.Context, accountID string) error

	// GetRefreshToken returns the bound fingerprint or "".
	GetRefreshToken(ctx context.Context, accountID string) (string, error)
}
