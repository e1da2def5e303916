package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"

	"hemotwin-backend/internal/shared/storage/docstore"
)

// node is the subset of *db.Ref the store relies on.
type node interface {
	Get(ctx context.Context, v interface{}) error
	Set(ctx context.Context, v interface{}) error
}

// Store implements docstore.Store on the Firebase Realtime Database.
// Documents live at /<collection>/<encoded key>.
type Store struct {
	ref func(path string) node
}

// New connects to the Realtime Database at databaseURL. An empty
// credentialsFile falls back to application default credentials.
func New(ctx context.Context, databaseURL, credentialsFile string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("firebase database url is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase database: %w", err)
	}

	return &Store{ref: func(path string) node { return client.NewRef(path) }}, nil
}

// Get decodes the document into out, or returns docstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, key string, out any) error {
	var raw json.RawMessage
	if err := s.ref(documentPath(collection, key)).Get(ctx, &raw); err != nil {
		return fmt.Errorf("firebase get %s: %w", collection, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return docstore.ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Set replaces the document with value.
func (s *Store) Set(ctx context.Context, collection, key string, value any) error {
	if err := s.ref(documentPath(collection, key)).Set(ctx, value); err != nil {
		return fmt.Errorf("firebase set %s: %w", collection, err)
	}
	return nil
}

func documentPath(collection, key string) string {
	return collection + "/" + EncodeKey(key)
}

// EncodeKey escapes characters the Realtime Database forbids in path segments.
func EncodeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '#', '$', '[', ']', '/', '%':
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ docstore.Store = (*Store)(nil)
