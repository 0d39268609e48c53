package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func SHA256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// EqualTokens compares two secrets in constant time.
func EqualTokens(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
