package encryption

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomAlphanumeric generates a random string of the specified length from
// [a-zA-Z0-9]. Used for generated stage directory names.
func RandomAlphanumeric(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
