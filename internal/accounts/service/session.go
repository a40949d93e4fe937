package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// SessionService runs login, refresh and logout. Accounts come from Store;
// the refresh token binding lives in Sessions, which is either the same
// database or Redis.
type SessionService struct {
	Store           store.Store
	Sessions        store.Sessions
	Issuer          *TokenIssuer
	Credentials     *CredentialVerifier
	RefreshVerifier jwtx.Verifier
}

// LoginInput identifies the account by username, email or both.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is the account that logged in and its new tokens.
type LoginResult struct {
	Account domain.Account
	Tokens  domain.TokenPair
}

// Login verifies the credentials, issues a token pair and binds the refresh
// token to the account, replacing whatever was bound before.
//
// An unknown identity and a wrong password fail identically with
// ErrInvalidCredentials. When both username and email are given they must
// name the same account.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	username := normalizeIdentity(in.Username)
	email := normalizeIdentity(in.Email)

	v := validationError{}
	if username == "" && email == "" {
		v.add("username", "username or email is required")
	}
	if in.Password == "" {
		v.add("password", "required")
	}
	if err := v.err(); err != nil {
		return LoginResult{}, err
	}

	account, found, err := s.lookupIdentity(ctx, username, email)
	if err != nil {
		return LoginResult{}, err
	}

	var candidate *domain.Account
	if found {
		candidate = &account
	}
	if !s.Credentials.Verify(candidate, in.Password) {
		l.Info("login rejected", slog.Bool("known_identity", found))
		return LoginResult{}, ErrInvalidCredentials
	}

	tokens, err := s.Issuer.IssuePair(account.ID)
	if err != nil {
		return LoginResult{}, internal("login: issue tokens", err)
	}

	fp := cryptox.FingerprintToken(tokens.RefreshToken)
	if err := s.Sessions.BindRefreshToken(ctx, account.ID, fp, tokens.RefreshExpiresAt); err != nil {
		return LoginResult{}, internal("login: bind refresh token", err)
	}

	s.maybeRehash(ctx, account, in.Password)

	l.Info("login succeeded", slog.String("account_id", account.ID))
	return LoginResult{Account: account, Tokens: tokens}, nil
}

// lookupIdentity resolves username and/or email. found is false for unknown
// identities and for a username and email that belong to different accounts.
func (s *SessionService) lookupIdentity(ctx context.Context, username, email string) (domain.Account, bool, error) {
	accounts := s.Store.Accounts()

	var byName, byEmail domain.Account
	var err error

	if username != "" {
		byName, err = accounts.GetAccountByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, false, nil
		}
		if err != nil {
			return domain.Account{}, false, internal("login: lookup username", err)
		}
	}

	if email != "" {
		byEmail, err = accounts.GetAccountByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, false, nil
		}
		if err != nil {
			return domain.Account{}, false, internal("login: lookup email", err)
		}
	}

	switch {
	case username != "" && email != "":
		if byName.ID != byEmail.ID {
			return domain.Account{}, false, nil
		}
		return byName, true, nil
	case username != "":
		return byName, true, nil
	default:
		return byEmail, true, nil
	}
}

// maybeRehash upgrades legacy or outdated hashes while the plaintext is at
// hand. Failure only costs us the upgrade, so it is logged and ignored.
func (s *SessionService) maybeRehash(ctx context.Context, account domain.Account, password string) {
	h := s.Credentials.Hasher
	if !h.NeedsRehash(account.PasswordHash) {
		return
	}

	l := slogx.FromContext(ctx)
	hash, err := h.Hash(password)
	if err != nil {
		l.Warn("rehash failed", slog.String("account_id", account.ID), slog.Any("err", err))
		return
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, account.ID, hash, s.Issuer.now()); err != nil {
		l.Warn("rehash not stored", slog.String("account_id", account.ID), slog.Any("err", err))
		return
	}
	l.Info("password hash upgraded", slog.String("account_id", account.ID))
}

// Refresh exchanges a bound refresh token for a new pair and rotates the
// binding. The presented token stops working the moment this succeeds.
//
// Nothing is written unless every check passes, and the rotation itself is a
// compare-and-swap: of two concurrent refreshes with the same token exactly
// one wins, the other gets ErrRefreshTokenRevoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return domain.TokenPair{}, ErrMissingRefreshToken
	}

	// Malformed, expired, wrong key and wrong typ all look the same to the
	// caller.
	claims, err := s.RefreshVerifier.Verify(refreshToken)
	if err != nil {
		l.Debug("refresh token rejected", slog.Any("err", err))
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return domain.TokenPair{}, internal("refresh: lookup account", err)
	}

	presented := cryptox.FingerprintToken(refreshToken)
	bound, err := s.Sessions.GetRefreshToken(ctx, account.ID)
	if err != nil {
		return domain.TokenPair{}, internal("refresh: read binding", err)
	}
	if !cryptox.FingerprintsEqual(presented, bound) {
		l.Info("refresh token reuse or revoked", slog.String("account_id", account.ID))
		return domain.TokenPair{}, ErrRefreshTokenRevoked
	}

	tokens, err := s.Issuer.IssuePair(account.ID)
	if err != nil {
		return domain.TokenPair{}, internal("refresh: issue tokens", err)
	}

	next := cryptox.FingerprintToken(tokens.RefreshToken)
	err = s.Sessions.RotateRefreshToken(ctx, account.ID, presented, next, tokens.RefreshExpiresAt)
	if errors.Is(err, store.ErrStale) {
		l.Info("refresh lost rotation race", slog.String("account_id", account.ID))
		return domain.TokenPair{}, ErrRefreshTokenRevoked
	}
	if err != nil {
		return domain.TokenPair{}, internal("refresh: rotate binding", err)
	}

	return tokens, nil
}

// Logout clears the account's refresh token binding. Logging out twice is
// fine.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	if err := s.Sessions.ClearRefreshToken(ctx, accountID); err != nil {
		return internal("logout", err)
	}
	slogx.FromContext(ctx).Info("logged out", slog.String("account_id", accountID))
	return nil
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
