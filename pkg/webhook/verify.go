package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSignature is returned when a signed request has no token.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrPayloadMismatch is returned when the body does not match the
	// signed payload hash.
	ErrPayloadMismatch = errors.New("payload hash mismatch")
)

// Verifier checks the HS256 signature the channel attaches to webhook
// requests.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared signature secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the bearer token on r against body.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || tokenString == "" {
		return ErrMissingSignature
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims type")
	}
	if want, ok := claims["payload_hash"].(string); ok && want != "" {
		sum := sha256.Sum256(body)
		if !strings.EqualFold(want, hex.EncodeToString(sum[:])) {
			return ErrPayloadMismatch
		}
	}
	return nil
}
