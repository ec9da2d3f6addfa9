// Package auth carries caller credentials between the reviewer client and the
// instruction store. Credentials are injected, never read from ambient state.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrNoCredentials indicates the provider has no token to offer.
var ErrNoCredentials = errors.New("no credentials configured")

// CredentialProvider supplies the bearer token for outbound requests.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider backed by a fixed token.
type StaticToken string

// Token implements CredentialProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

// Apply sets the Authorization header on h when provider yields a token. A
// missing token leaves the header unset so anonymous deployments keep working.
func Apply(ctx context.Context, provider CredentialProvider, h http.Header) error {
	if provider == nil {
		return nil
	}
	token, err := provider.Token(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	h.Set("Authorization", "Bearer "+token)
	return nil
}

// BearerToken extracts the token from an Authorization header, falling back to
// the token query parameter that browser websocket clients use.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
