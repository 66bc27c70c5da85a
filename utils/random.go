// utils/random.go
package utils

import (
	"crypto/rand"
	"math/big"
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomString returns an uppercase alphanumeric string of the
// given length, used as the random part of bill numbers.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumerics))))
		if err != nil {
			panic("failed to read random bytes")
		}
		b[i] = alphanumerics[n.Int64()]
	}
	return string(b)
}

// GenerateNumericString returns a string of random decimal digits.
// Uniqueness is best effort; there is no central registry to check
// certificate numbers against.
func GenerateNumericString(length int) string {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			panic("failed to read random bytes")
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b)
}
