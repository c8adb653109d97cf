/*
Package randx provides functions for generating cryptographically secure random tokens and unique identifiers.

It generates UUID user identities, fixed-length Base62 reconnection secrets,
and the default display name derived from an identity.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SecretLength is the fixed length of a reconnection secret.
	SecretLength = 8

	// DefaultUsernamePrefix prefixes names derived from a user ID.
	DefaultUsernamePrefix = "User_"

	// defaultUsernameIDChars is how many leading ID characters a derived name keeps.
	defaultUsernameIDChars = 5
)

// Secret generates a Base62 reconnection secret of SecretLength characters using crypto/rand.
func Secret() (string, error) {
	result := make([]byte, SecretLength)

	for i := range SecretLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for secret: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// UserID generates a UUID v4 string used as a stable logical identity.
func UserID() string {
	return uuid.New().String()
}

// IsValidSecret reports whether s has the shape of a secret issued by Secret.
func IsValidSecret(s string) bool {
	if len(s) != SecretLength {
		return false
	}

	for _, char := range s {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// DefaultUsername derives a display name from a user ID, e.g. "User_1b9d6".
func DefaultUsername(userID string) string {
	prefix := userID
	if len(prefix) > defaultUsernameIDChars {
		prefix = prefix[:defaultUsernameIDChars]
	}
	return DefaultUsernamePrefix + prefix
}
