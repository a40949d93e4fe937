package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/authsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// AccountsHandler serves registration and the /v1/accounts/me endpoints.
type AccountsHandler struct {
	AccountService *service.AccountService
	Cookies        httpx.CookieConfig
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates an account. Username and email are case-insensitive and must both be unused.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.Account
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid body or missing fields"
//	@Failure		409		{object}	authsdk.ErrorResponse	"username or email taken"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Router			/v1/accounts [post].
func (h *AccountsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req, false); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	account, err := h.AccountService.Register(r.Context(), service.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		AvatarURL:     req.AvatarURL,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/accounts/me")
	httpx.WriteJSON(w, http.StatusCreated, toAPIAccount(account))
}

// HandleMe godoc
//
//	@Summary		Current account
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.Account
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"account deleted"
//	@Router			/v1/accounts/me [get].
func (h *AccountsHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, err := h.AccountService.GetAccount(r.Context(), httpx.AccountIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIAccount(account))
}

// HandleUpdateProfile godoc
//
//	@Summary		Update profile
//	@Description	Changes the fields present in the body. A new email must be unused.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.UpdateProfileRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.Account
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"email taken"
//	@Router			/v1/accounts/me [patch].
func (h *AccountsHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req, false); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	account, err := h.AccountService.UpdateProfile(r.Context(), httpx.AccountIDFromContext(r.Context()), domain.ProfileUpdate{
		FullName:      req.FullName,
		Email:         req.Email,
		AvatarURL:     req.AvatarURL,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAPIAccount(account))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the password after checking the old one. The refresh token is revoked and the token cookies cleared; log in again afterwards.
//	@Tags			Accounts
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Old and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"not logged in or wrong old password"
//	@Router			/v1/accounts/me/password [post].
func (h *AccountsHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req, false); err != nil {
		authsdk.ErrInvalidBody.WriteError(w)
		return
	}

	err := h.AccountService.ChangePassword(r.Context(), httpx.AccountIDFromContext(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.ClearTokenCookies(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
