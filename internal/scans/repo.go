package scans

import "context"

// Repo persists scans.
type Repo interface {
	Create(ctx context.Context, scan Scan) error
	Get(ctx context.Context, scanID string) (Scan, error)
	GetForUser(ctx context.Context, email, scanID string) (Scan, error)
	ListByUser(ctx context.Context, email string, limit, offset int) ([]Scan, error)
	UpdateStatus(ctx context.Context, scanID string, upd StatusUpdate) error
}
