package scans

import (
	"time"

	"hemotwin-backend/internal/bloodtest"
)

// Status is the processing state of a scan.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Scan is one uploaded blood-test report and the outcome of reading it.
type Scan struct {
	ID              string
	UserEmail       string
	FileName        string
	MimeType        string
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	TextKey         string
	Status          Status
	Record          bloodtest.LabRecord
	Changed         bool
	ErrorMessage    string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}

// StatusUpdate is a transition applied to a stored scan. Zero fields other than
// Status are written as empty.
type StatusUpdate struct {
	Status       Status
	TextKey      string
	Record       bloodtest.LabRecord
	Changed      bool
	ErrorMessage string
	ProcessedAt  *time.Time
}

func (s *Scan) apply(u StatusUpdate) {
	s.Status = u.Status
	s.TextKey = u.TextKey
	s.Record = u.Record
	s.Changed = u.Changed
	s.ErrorMessage = u.ErrorMessage
	s.ProcessedAt = u.ProcessedAt
}
