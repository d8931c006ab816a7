package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned when a presented key matches no entry.
var ErrInvalidAPIKey = errors.New("invalid API key")

// APIKey represents an API key entry. Exactly one of Key and KeyHash is set.
type APIKey struct {
	Name string `yaml:"name"`

	// Key is the plaintext key value.
	Key string `yaml:"key"`

	// KeyHash is a bcrypt hash of the key value.
	KeyHash string `yaml:"key_hash"`

	Roles []string `yaml:"roles"`
}

// APIKeyAuthenticator authenticates using API keys.
type APIKeyAuthenticator struct {
	keys []APIKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(keys []APIKey) (*APIKeyAuthenticator, error) {
	for i, k := range keys {
		switch {
		case k.Name == "":
			return nil, fmt.Errorf("api key %d: name is required", i)
		case (k.Key == "") == (k.KeyHash == ""):
			return nil, fmt.Errorf("api key %q: exactly one of key and key_hash is required", k.Name)
		case k.KeyHash != "":
			if _, err := bcrypt.Cost([]byte(k.KeyHash)); err != nil {
				return nil, fmt.Errorf("api key %q: invalid key_hash: %w", k.Name, err)
			}
		}
	}
	return &APIKeyAuthenticator{keys: keys}, nil
}

// ExtractToken returns the credential from the X-API-Key header, or from
// an Authorization bearer token.
func ExtractToken(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthenticateRequest validates the key presented on r. It returns nil,
// nil when the request carries no credentials.
func (a *APIKeyAuthenticator) AuthenticateRequest(r *http.Request) (*UserContext, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, nil //nolint:nilnil // nil user with nil error means no credentials provided
	}

	key := a.match(token)
	if key == nil {
		return nil, ErrInvalidAPIKey
	}
	return &UserContext{
		UserID:   "apikey:" + key.Name,
		Roles:    key.Roles,
		AuthType: "apikey",
	}, nil
}

func (a *APIKeyAuthenticator) match(token string) *APIKey {
	for i := range a.keys {
		k := &a.keys[i]
		if k.KeyHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(token)) == nil {
				return k
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(token)) == 1 {
			return k
		}
	}
	return nil
}
