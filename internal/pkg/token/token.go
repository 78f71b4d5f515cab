package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewVerificationCode generates a 6-digit numeric code from crypto/rand.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
