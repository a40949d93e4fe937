package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

const (
	maxUsernameLen = 64
	maxFieldLen    = 512
)

// AccountService handles registration, profile reads and writes, and
// password changes.
type AccountService struct {
	Store       store.Store
	Sessions    store.Sessions
	Credentials *CredentialVerifier
	Clock       clockx.Clock
}

// RegisterInput is what a new user supplies.
type RegisterInput struct {
	Username      string
	Email         string
	Password      string
	FullName      string
	AvatarURL     string
	CoverImageURL string
}

func (s *AccountService) clock() clockx.Clock {
	if s.Clock == nil {
		return clockx.System{}
	}
	return s.Clock
}

// Register creates an account. Username and email are lower-cased and must
// both be unused.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	l := slogx.FromContext(ctx)

	username := normalizeIdentity(in.Username)
	email := normalizeIdentity(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	v := validationError{}
	switch {
	case username == "":
		v.add("username", "required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		v.add("username", "too long")
	case strings.ContainsAny(username, " \t@"):
		v.add("username", "must not contain spaces or @")
	}
	validateEmail(v, email)
	if in.Password == "" {
		v.add("password", "required")
	}
	switch {
	case fullName == "":
		v.add("full_name", "required")
	case len(fullName) > maxFieldLen:
		v.add("full_name", "too long")
	}
	if len(in.AvatarURL) > maxFieldLen {
		v.add("avatar_url", "too long")
	}
	if len(in.CoverImageURL) > maxFieldLen {
		v.add("cover_image_url", "too long")
	}
	if err := v.err(); err != nil {
		return domain.Account{}, err
	}

	// Hash before opening the transaction; argon2 is slow and sqlite has a
	// single writer.
	hash, err := s.Credentials.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Account{}, internal("register: hash password", err)
	}

	now := s.clock().Now()
	account := domain.Account{
		ID:            idx.NewAt(now).String(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if taken, err := identityTaken(ctx, tx.Accounts(), username, email); err != nil {
			return err
		} else if taken {
			return ErrAccountExists
		}
		return tx.Accounts().CreateAccount(ctx, account)
	})
	switch {
	case errors.Is(err, ErrAccountExists), errors.Is(err, store.ErrAlreadyExists):
		return domain.Account{}, ErrAccountExists
	case err != nil:
		return domain.Account{}, internal("register", err)
	}

	l.Info("account registered", slog.String("account_id", account.ID))
	return account, nil
}

// identityTaken reports whether username or email already belongs to an
// account.
func identityTaken(ctx context.Context, accounts store.Accounts, username, email string) (bool, error) {
	if _, err := accounts.GetAccountByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	if _, err := accounts.GetAccountByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	return false, nil
}

// GetAccount returns the account for an authenticated subject.
func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	a, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, internal("get account", err)
	}
	return a, nil
}

// UpdateProfile applies the set fields of upd. A new email must be unused.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (domain.Account, error) {
	v := validationError{}
	if upd.IsEmpty() {
		v.add("body", "nothing to update")
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		upd.FullName = &name
		if name == "" {
			v.add("full_name", "must not be empty")
		} else if len(name) > maxFieldLen {
			v.add("full_name", "too long")
		}
	}
	if upd.Email != nil {
		email := normalizeIdentity(*upd.Email)
		upd.Email = &email
		validateEmail(v, email)
	}
	if upd.AvatarURL != nil && len(*upd.AvatarURL) > maxFieldLen {
		v.add("avatar_url", "too long")
	}
	if upd.CoverImageURL != nil && len(*upd.CoverImageURL) > maxFieldLen {
		v.add("cover_image_url", "too long")
	}
	if err := v.err(); err != nil {
		return domain.Account{}, err
	}

	var updated domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.Accounts().GetAccountByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		if upd.Email != nil && *upd.Email != a.Email {
			other, err := tx.Accounts().GetAccountByEmail(ctx, *upd.Email)
			switch {
			case err == nil && other.ID != a.ID:
				return ErrEmailTaken
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		upd.Apply(&a)
		a.UpdatedAt = s.clock().Now()
		if err := tx.Accounts().UpdateProfile(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrEmailTaken):
		return domain.Account{}, err
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.Account{}, ErrEmailTaken
	case errors.Is(err, store.ErrNotFound):
		return domain.Account{}, ErrAccountNotFound
	case err != nil:
		return domain.Account{}, internal("update profile", err)
	}
	return updated, nil
}

// ChangePassword replaces the password after checking the old one. The
// refresh token binding is cleared first, so every session has to log in
// again with the new password; if the hash write then fails the account is
// merely logged out.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	l := slogx.FromContext(ctx)

	v := validationError{}
	if oldPassword == "" {
		v.add("old_password", "required")
	}
	if newPassword == "" {
		v.add("new_password", "required")
	}
	if err := v.err(); err != nil {
		return err
	}

	a, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return internal("change password: lookup", err)
	}

	if !s.Credentials.Verify(&a, oldPassword) {
		return ErrInvalidCredentials
	}

	hash, err := s.Credentials.Hasher.Hash(newPassword)
	if err != nil {
		return internal("change password: hash", err)
	}

	if err := s.Sessions.ClearRefreshToken(ctx, id); err != nil {
		return internal("change password: revoke sessions", err)
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, id, hash, s.clock().Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return internal("change password: store hash", err)
	}

	l.Info("password changed", slog.String("account_id", id))
	return nil
}

func validateEmail(v validationError, email string) {
	switch {
	case email == "":
		v.add("email", "required")
	case len(email) > maxFieldLen:
		v.add("email", "too long")
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			v.add("email", "invalid")
		}
	}
}
