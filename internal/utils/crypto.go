// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// ContentHash is the hex SHA-256 of data, used as a strong ETag.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortID is the human-facing order reference: the first eight hex digits.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}

// RecoveryCode returns a random six digit code.
func RecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
