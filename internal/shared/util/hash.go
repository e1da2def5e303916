package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// OwnerKey maps an email to a stable hex identifier so storage keys and logs never
// carry the address itself. Case and surrounding spaces are ignored.
func OwnerKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// ShortOwnerKey is the first 12 characters of OwnerKey, for log fields.
func ShortOwnerKey(email string) string {
	return OwnerKey(email)[:12]
}
