package object

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// ErrTooLarge is returned by ReadAll when an object exceeds the limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// ObjectStore saves and retrieves report files and their derived text.
type ObjectStore interface {
	// Save stores an upload under the owner's namespace and returns the generated key
	// together with the sniffed content type.
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey writes r at an exact key, replacing any previous object.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// ReadAll reads the object at key, failing with ErrTooLarge past limit bytes.
// A limit <= 0 disables the check.
func ReadAll(ctx context.Context, store ObjectStore, key string, limit int64) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
