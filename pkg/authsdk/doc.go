/*
Package authsdk provides a client SDK for the accounts service.

# SDKClient vs Session

  - SDKClient: registration, login, refresh and health checks
  - Session: authenticated operations with automatic token refresh

	client := authsdk.NewSDKClient("https://accounts.example.com")

	account, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Secret1",
		FullName: "Alice",
	})

	session, err := client.AuthenticateWithPassword(ctx, "alice", "Secret1")

	me, err := session.Me(ctx)

# Refresh Tokens

The service keeps exactly one valid refresh token per account. Every refresh
rotates it, and a new login replaces it, so two Sessions for the same account
cannot both stay alive: whichever refreshes second fails with
ErrUnauthorized. A Session that sees that error forgets its tokens.

Logout and ChangePassword revoke the refresh token on the server and clear
the Session.

# Error Handling

Every non-2xx response is returned as an *APIError. Match the class with
errors.Is:

	if errors.Is(err, authsdk.ErrUnauthorized) {
		// log in again
	}

# Thread Safety

Sessions are safe for concurrent use. Concurrent calls that find the access
token expired refresh it once.
*/
package authsdk
