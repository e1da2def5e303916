package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hemotwin-backend/internal/shared/storage/docstore"
)

// document is the subset of *firestore.DocumentRef the store relies on, with
// snapshots reduced to their field maps.
type document interface {
	Get(ctx context.Context) (map[string]any, error)
	Set(ctx context.Context, data map[string]any) error
}

type docRef struct {
	ref *gcfirestore.DocumentRef
}

func (d docRef) Get(ctx context.Context) (map[string]any, error) {
	snap, err := d.ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, docstore.ErrNotFound
	}
	return snap.Data(), nil
}

func (d docRef) Set(ctx context.Context, data map[string]any) error {
	_, err := d.ref.Set(ctx, data)
	return err
}

// Store implements docstore.Store on Cloud Firestore. Each collection maps to a
// Firestore collection and each key to a document ID.
//
// Values travel through their JSON form so documents keep the field names and
// null markers the HTTP API exposes.
type Store struct {
	doc func(path string) document
}

// New opens the Firestore database of the Firebase project. An empty projectID
// is read from the credentials; an empty credentialsFile falls back to
// application default credentials.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: strings.TrimSpace(projectID)}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &Store{doc: func(path string) document { return docRef{ref: client.Doc(path)} }}, nil
}

// Get decodes the document into out, or returns docstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, key string, out any) error {
	data, err := s.doc(documentPath(collection, key)).Get(ctx)
	if errors.Is(err, docstore.ErrNotFound) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("firestore get %s: %w", collection, err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Set replaces the document with value. value must encode to a JSON object.
func (s *Store) Set(ctx context.Context, collection, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return fmt.Errorf("firestore set %s: document must be an object", collection)
	}
	if err := s.doc(documentPath(collection, key)).Set(ctx, data); err != nil {
		return fmt.Errorf("firestore set %s: %w", collection, err)
	}
	return nil
}

// documentPath escapes the key so an email cannot add path segments.
func documentPath(collection, key string) string {
	return collection + "/" + url.PathEscape(key)
}

var _ docstore.Store = (*Store)(nil)
