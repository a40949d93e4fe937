package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// sessionsRepo keeps the refresh token binding on the accounts row itself,
// which is what limits each account to a single live refresh token.
type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) BindRefreshToken(ctx context.Context, accountID, fingerprint string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET refresh_token_hash = ?, refresh_token_expires_at = ?
		WHERE id = ?`,
		fingerprint, mapOptionalTime(expiresAt), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RotateRefreshToken(ctx context.Context, accountID, presented, next string, expiresAt time.Time) error {
	if presented == "" {
		return store.ErrStale
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET refresh_token_hash = ?, refresh_token_expires_at = ?
		WHERE id = ? AND refresh_token_hash = ? AND refresh_token_hash != ''`,
		next, mapOptionalTime(expiresAt), accountID, presented)
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
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET refresh_token_hash = '', refresh_token_expires_at = NULL
		WHERE id = ?`,
		accountID)
	return err
}

func (r *sessionsRepo) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	var fp string
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_token_hash FROM accounts WHERE id = ?`, accountID).Scan(&fp)
	if err != nil {
		return "", mapNotFound(err)
	}
	return fp, nil
}
