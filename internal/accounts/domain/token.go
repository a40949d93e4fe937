package domain

import "time"

// TokenPair is what a successful login or refresh hands back: a short lived
// access token and the refresh token now bound to the account.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
