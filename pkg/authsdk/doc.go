/*
Package authsdk provides a client SDK for the Trajet authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (login, refresh, logout, health)
  - Session: authenticated operations with automatic token refresh

Create an SDKClient and log in to obtain a Session:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "user@example.com", "Secret123!")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// wrong email or password, the service does not say which
		}
		return err
	}

	me, err := session.Me(ctx)

# Automatic Token Refresh

Every Session method obtains a valid access token first. When the token is
within 30 seconds of expiry the session exchanges its refresh token at
/api/auth/refresh. The server rotates refresh tokens: the old one is revoked
and must not be reused, so a single Session should be shared rather than
copying its refresh token around.

# Roles

Token responses carry both bare role codes (Roles, e.g. "ADMIN") and the
prefixed authorities the service checks routes against (e.g. "ROLE_ADMIN").
Session.HasRole checks bare codes.

# Errors

Non-2xx responses are returned as *APIError. The predefined values such as
ErrInvalidCredentials and ErrInvalidGrant match with errors.Is.
*/
package authsdk
