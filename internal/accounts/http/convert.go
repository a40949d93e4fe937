package http

import (
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
)

func toAPIAccount(a domain.Account) authsdk.Account {
	return authsdk.Account{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toTokenResponse(p domain.TokenPair, now time.Time) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		TokenType:             "Bearer",
		ExpiresIn:             int(p.AccessExpiresAt.Sub(now).Seconds()),
		AccessTokenExpiresAt:  p.AccessExpiresAt,
		RefreshTokenExpiresAt: p.RefreshExpiresAt,
	}
}
