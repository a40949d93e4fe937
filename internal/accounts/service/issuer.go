package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// TokenIssuer mints access and refresh tokens. Each kind has its own
// signer, and so its own secret, and its own typ claim.
type TokenIssuer struct {
	AccessSigner  jwtx.Signer
	RefreshSigner jwtx.Signer
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         clockx.Clock
}

func (i *TokenIssuer) now() time.Time {
	if i.Clock == nil {
		return time.Now().UTC()
	}
	return i.Clock.Now()
}

// IssueAccessToken returns a signed access token for subjectID and its expiry.
func (i *TokenIssuer) IssueAccessToken(subjectID string) (string, time.Time, error) {
	return i.issue(i.AccessSigner, subjectID, jwtx.TypeAccess, i.AccessTTL)
}

// IssueRefreshToken returns a signed refresh token for subjectID and its expiry.
func (i *TokenIssuer) IssueRefreshToken(subjectID string) (string, time.Time, error) {
	return i.issue(i.RefreshSigner, subjectID, jwtx.TypeRefresh, i.RefreshTTL)
}

// IssuePair mints both tokens.
func (i *TokenIssuer) IssuePair(subjectID string) (domain.TokenPair, error) {
	access, accessExp, err := i.IssueAccessToken(subjectID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := i.IssueRefreshToken(subjectID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *TokenIssuer) issue(s jwtx.Signer, subjectID, typ string, ttl time.Duration) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, fmt.Errorf("issue %s token: empty subject", typ)
	}
	claims := jwtx.NewClaims(subjectID, typ, i.Issuer, ttl, i.now())
	tok, err := s.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return tok, claims.ExpiresAt.Time, nil
}
