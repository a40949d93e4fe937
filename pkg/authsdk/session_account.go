package authsdk

import (
	"context"
	"net/http"
)

// Me returns the account the session belongs to.
func (s *Session) Me(ctx context.Context) (*Account, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/accounts/me", nil)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := decodeJSON(resp, &account, http.StatusOK); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateProfile changes the set fields of req.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/v1/accounts/me", req)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := decodeJSON(resp, &account, http.StatusOK); err != nil {
		return nil, err
	}
	return &account, nil
}

// ChangePassword changes the account password. The server revokes the
// refresh token, so the session is cleared on success and the caller must
// authenticate again.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/accounts/me/password", ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.clear()
	return nil
}

// Logout revokes the session's refresh token on the server and forgets the
// local tokens.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions", nil)
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.clear()
	return nil
}
