package httpx

import (
	"net/http"
	"time"
)

// Cookie names used to deliver tokens to browsers.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig controls the attributes of the token cookies. Secure should
// only be false for local development over plain HTTP.
type CookieConfig struct {
	Secure bool
	Domain string
}

// SetTokenCookies sets the access and refresh cookies, each expiring with
// its token.
func (c CookieConfig) SetTokenCookies(w http.ResponseWriter, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, access, accessExp))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, refresh, refreshExp))
}

// ClearTokenCookies expires both token cookies.
func (c CookieConfig) ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := c.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieValue returns the named cookie's value or "".
func CookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
