package docstore

import (
	"context"
	"errors"
	"strings"
)

// Collections used by the service.
const (
	CollectionPatients   = "patients"
	CollectionHealthData = "healthData"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// Store is a keyed document store. Values are JSON-encodable structs.
type Store interface {
	// Get decodes the document at collection/key into out.
	Get(ctx context.Context, collection, key string, out any) error
	// Set replaces the document at collection/key with value.
	Set(ctx context.Context, collection, key string, value any) error
}

// NormalizeKey lower-cases and trims an email so it can be used as a key.
func NormalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
