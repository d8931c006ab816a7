// Package joincode generates the short codes players type to join a game.
package joincode

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters in a join code.
const Length = 8

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// New returns a random lowercase base32 code of Length characters.
// The characters come from the random bytes of a version 4 UUID.
func New() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])[:Length]), nil
}

// Normalize lowercases and trims a code typed by a player.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Valid reports whether code has the shape of a generated code.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return false
		}
	}
	return true
}
