package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
	"github.com/aussiebroadwan/accounts/pkg/clockx"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// SessionsHandler serves login, refresh and logout. Tokens go out both in
// the JSON body and as HttpOnly cookies.
type SessionsHandler struct {
	SessionService *service.SessionService
	Cookies        httpx.CookieConfig
	Clock          clockx.Clock
}

func (h *SessionsHandler) clock() clockx.Clock {
	if h.Clock == nil {
		return clockx.System{}
	}
	return h.Clock
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username and/or email plus password for a token pair. Any earlier refresh token for the account stops working.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse	"tokens and the account"
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Header			200		{string}	Set-Cookie				"accessToken, refreshToken"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req, false); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	res, err := h.SessionService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	t := res.Tokens
	h.Cookies.SetTokenCookies(w, t.AccessToken, t.AccessExpiresAt, t.RefreshToken, t.RefreshExpiresAt)

	response := toTokenResponse(t, h.clock().Now())
	account := toAPIAccount(res.Account)
	response.Account = &account
	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates the refresh token. It is read from the body, or from the refreshToken cookie when the body has none. The presented token is unusable afterwards.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token, unless sent as a cookie"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing, invalid, expired, revoked or superseded"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/v1/sessions/refresh [post].
func (h *SessionsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req, true); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	token := req.RefreshToken
	if token == "" {
		token = httpx.CookieValue(r, httpx.RefreshTokenCookie)
	}

	pair, err := h.SessionService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			// The cookie can never work again.
			h.Cookies.ClearTokenCookies(w)
		}
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.SetTokenCookies(w, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair, h.clock().Now()))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the account's refresh token and clears the token cookies. Idempotent.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Router			/v1/sessions [delete].
func (h *SessionsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionService.Logout(r.Context(), httpx.AccountIDFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.ClearTokenCookies(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
