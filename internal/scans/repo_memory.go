package scans

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	scans map[string]Scan
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{scans: make(map[string]Scan)}
}

// Create stores a new scan.
func (r *MemoryRepo) Create(ctx context.Context, scan Scan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans[scan.ID] = scan
	return nil
}

// Get returns a scan by ID regardless of owner.
func (r *MemoryRepo) Get(ctx context.Context, scanID string) (Scan, error) {
	if err := ctx.Err(); err != nil {
		return Scan{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	scan, ok := r.scans[scanID]
	if !ok {
		return Scan{}, ErrNotFound
	}
	return scan, nil
}

// GetForUser returns a scan owned by email.
func (r *MemoryRepo) GetForUser(ctx context.Context, email, scanID string) (Scan, error) {
	scan, err := r.Get(ctx, scanID)
	if err != nil {
		return Scan{}, err
	}
	if scan.UserEmail != email {
		return Scan{}, ErrNotFound
	}
	return scan, nil
}

// ListByUser returns scans for email, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, email string, limit, offset int) ([]Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	out := make([]Scan, 0)
	for _, scan := range r.scans {
		if scan.UserEmail == email {
			out = append(out, scan)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Scan{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// UpdateStatus applies upd to the stored scan.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, scanID string, upd StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.scans[scanID]
	if !ok {
		return ErrNotFound
	}
	scan.apply(upd)
	r.scans[scanID] = scan
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
