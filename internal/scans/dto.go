package scans

import (
	"time"

	"hemotwin-backend/internal/bloodtest"
)

// ScanResponse is the outward-facing representation of a scan.
type ScanResponse struct {
	ScanID      string              `json:"scanId"`
	FileName    string              `json:"fileName"`
	MimeType    string              `json:"mimeType"`
	SizeBytes   int64               `json:"sizeBytes"`
	Status      Status              `json:"status"`
	Record      bloodtest.LabRecord `json:"record,omitempty"`
	Missing     []string            `json:"missing,omitempty"`
	Changed     bool                `json:"changed"`
	Error       string              `json:"error,omitempty"`
	UploadedAt  time.Time           `json:"uploadedAt"`
	ProcessedAt *time.Time          `json:"processedAt,omitempty"`
}

func toResponse(scan Scan) ScanResponse {
	resp := ScanResponse{
		ScanID:      scan.ID,
		FileName:    scan.FileName,
		MimeType:    scan.MimeType,
		SizeBytes:   scan.SizeBytes,
		Status:      scan.Status,
		Changed:     scan.Changed,
		Error:       scan.ErrorMessage,
		UploadedAt:  scan.CreatedAt,
		ProcessedAt: scan.ProcessedAt,
	}
	if scan.Status == StatusCompleted && scan.Record != nil {
		resp.Record = scan.Record
		resp.Missing = scan.Record.Missing(bloodtest.Metrics...)
	}
	return resp
}

// ListResponse is a page of scans.
type ListResponse struct {
	Items  []ScanResponse `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// CompleteUploadRequest registers a report uploaded through a presigned URL.
type CompleteUploadRequest struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}
