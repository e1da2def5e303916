package scans

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hemotwin-backend/internal/bloodtest"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const scanColumns = `id, user_email, file_name, mime_type, size_bytes, storage_provider, storage_key, text_key, status, record, changed, error_message, created_at, processed_at`

// Create inserts a new scan.
func (r *PGRepo) Create(ctx context.Context, scan Scan) error {
	const query = `
INSERT INTO scans (
    id,
    user_email,
    file_name,
    mime_type,
    size_bytes,
    storage_provider,
    storage_key,
    status,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	provider := scan.StorageProvider
	if provider == "" {
		provider = "local"
	}
	_, err := r.DB.ExecContext(
		ctx,
		query,
		scan.ID,
		scan.UserEmail,
		scan.FileName,
		scan.MimeType,
		scan.SizeBytes,
		provider,
		scan.StorageKey,
		string(scan.Status),
		scan.CreatedAt,
	)
	return err
}

// Get fetches a scan by ID.
func (r *PGRepo) Get(ctx context.Context, scanID string) (Scan, error) {
	const query = `SELECT ` + scanColumns + `
FROM scans
WHERE id = $1`
	return scanRow(r.DB.QueryRowContext(ctx, query, scanID))
}

// GetForUser fetches a scan by ID owned by email.
func (r *PGRepo) GetForUser(ctx context.Context, email, scanID string) (Scan, error) {
	const query = `SELECT ` + scanColumns + `
FROM scans
WHERE user_email = $1 AND id = $2`
	return scanRow(r.DB.QueryRowContext(ctx, query, email, scanID))
}

// ListByUser lists scans ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, email string, limit, offset int) ([]Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + scanColumns + `
FROM scans
WHERE user_email = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, email, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Scan{}
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, scan)
	}
	return out, rows.Err()
}

// UpdateStatus writes a status transition.
func (r *PGRepo) UpdateStatus(ctx context.Context, scanID string, upd StatusUpdate) error {
	const query = `
UPDATE scans
SET status = $1, text_key = $2, record = $3, changed = $4, error_message = $5, processed_at = $6
WHERE id = $7`

	var record []byte
	if upd.Record != nil {
		encoded, err := json.Marshal(upd.Record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		record = encoded
	}
	var processedAt sql.NullTime
	if upd.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *upd.ProcessedAt, Valid: true}
	}

	res, err := r.DB.ExecContext(
		ctx,
		query,
		string(upd.Status),
		nullString(upd.TextKey),
		record,
		upd.Changed,
		nullString(upd.ErrorMessage),
		processedAt,
		scanID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (Scan, error) {
	var scan Scan
	var status string
	var textKey sql.NullString
	var record []byte
	var errorMessage sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(
		&scan.ID,
		&scan.UserEmail,
		&scan.FileName,
		&scan.MimeType,
		&scan.SizeBytes,
		&scan.StorageProvider,
		&scan.StorageKey,
		&textKey,
		&status,
		&record,
		&scan.Changed,
		&errorMessage,
		&scan.CreatedAt,
		&processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, ErrNotFound
		}
		return Scan{}, err
	}
	scan.Status = Status(status)
	if textKey.Valid {
		scan.TextKey = textKey.String
	}
	if errorMessage.Valid {
		scan.ErrorMessage = errorMessage.String
	}
	if processedAt.Valid {
		scan.ProcessedAt = &processedAt.Time
	}
	if len(record) > 0 {
		var rec bloodtest.LabRecord
		if err := json.Unmarshal(record, &rec); err != nil {
			return Scan{}, fmt.Errorf("decode record scan=%s: %w", scan.ID, err)
		}
		scan.Record = rec
	}
	return scan, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
