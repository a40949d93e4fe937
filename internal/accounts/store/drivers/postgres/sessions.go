package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) BindRefreshToken(ctx context.Context, accountID, fingerprint string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET refresh_token_hash = $1, refresh_token_expires_at = $2 WHERE id = $3`,
		fingerprint, nullTime(expiresAt), accountID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateRefreshToken is a single conditional UPDATE; row locking makes
// concurrent rotations of the same token serialise and all but one match
// zero rows.
func (r *sessionsRepo) RotateRefreshToken(ctx context.Context, accountID, presented, next string, expiresAt time.Time) error {
	if presented == "" {
		return store.ErrStale
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET refresh_token_hash = $1, refresh_token_expires_at = $2 WHERE id = $3 AND refresh_token_hash = $4 AND refresh_token_hash <> ''`,
		next, nullTime(expiresAt), accountID, presented,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStale
	}
	return nil
}

func (r *sessionsRepo) ClearRefreshToken(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET refresh_token_hash = '', refresh_token_expires_at = NULL WHERE id = $1`,
		accountID,
	)
	return err
}

func (r *sessionsRepo) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	var fp string
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_token_hash FROM accounts WHERE id = $1`, accountID,
	).Scan(&fp)
	if err != nil {
		return "", mapNotFound(err)
	}
	return fp, nil
}
