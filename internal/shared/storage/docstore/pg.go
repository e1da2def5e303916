package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGStore keeps documents in the store_documents JSONB table.
type PGStore struct {
	DB *sql.DB
}

// Get decodes the document body into out.
func (s *PGStore) Get(ctx context.Context, collection, key string, out any) error {
	const query = `
SELECT body
FROM store_documents
WHERE collection = $1 AND doc_key = $2`

	var body []byte
	err := s.DB.QueryRowContext(ctx, query, collection, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return nil
}

// Set upserts the document body.
func (s *PGStore) Set(ctx context.Context, collection, key string, value any) error {
	const query = `
INSERT INTO store_documents (collection, doc_key, body, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (collection, doc_key) DO UPDATE SET
  body = EXCLUDED.body,
  updated_at = now()`

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	if _, err := s.DB.ExecContext(ctx, query, collection, key, string(body)); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, key, err)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
