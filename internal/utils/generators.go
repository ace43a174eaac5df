package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderID follows the storefront format ORD-<epoch millis>-<0..999>.
// Collisions are tolerated, not prevented.
func GenerateOrderID(now time.Time, randIntn func(int) int) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), randIntn(1000))
}

// CryptoIntn returns a uniform int in [0, n) from crypto/rand.
func CryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return int(time.Now().UnixNano() % int64(n))
	}
	return int(v.Int64())
}

// GenerateUUID creates a random UUID v4
func GenerateUUID() string {
	return uuid.NewString()
}
