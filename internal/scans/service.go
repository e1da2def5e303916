package scans

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/queue"
	"hemotwin-backend/internal/shared/metrics"
	"hemotwin-backend/internal/shared/storage/docstore"
	"hemotwin-backend/internal/shared/storage/object"
	"hemotwin-backend/internal/shared/telemetry"
	"hemotwin-backend/internal/shared/util"
	"hemotwin-backend/internal/textsource"
)

// MaxUploadBytes bounds a single report upload.
const MaxUploadBytes = textsource.MaxSourceBytes

// TextSource reads the plain text of a stored report.
type TextSource interface {
	Text(ctx context.Context, key, mimeType, fileName string) (string, error)
}

// Stater reports the size and content type of a stored object. Object stores that
// support presigned uploads implement it.
type Stater interface {
	Stat(ctx context.Context, key string) (int64, string, error)
}

// Service contains business logic for scans.
type Service struct {
	Store           object.ObjectStore
	StorageProvider string
	Repo            Repo
	Text            TextSource
	Health          *healthdata.Service
	Specs           []bloodtest.FieldSpec

	// Queue receives processing jobs. Without one, scans are processed inline.
	Queue queue.Client

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) specs() []bloodtest.FieldSpec {
	if len(s.Specs) == 0 {
		return bloodtest.DefaultSpecs()
	}
	return s.Specs
}

// KeyPrefix is the storage namespace of email's reports.
func KeyPrefix(email string) string {
	return "scans/" + util.OwnerKey(email) + "/"
}

// NewStorageKey allocates a scan ID and the key its report is stored under.
func NewStorageKey(email, fileName string) (scanID, key string, err error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	scanID = uuid.NewString()
	return scanID, KeyPrefix(email) + scanID + "/" + name, nil
}

// Upload validates and stores a report, records the scan and submits it for
// processing.
func (s *Service) Upload(ctx context.Context, email, fileName, requestID string, r io.Reader) (Scan, error) {
	email = docstore.NormalizeKey(email)
	if email == "" || strings.TrimSpace(fileName) == "" {
		return Scan{}, ErrInvalidInput
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Scan{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Scan{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return Scan{}, ErrTooLarge
	}

	mimeType := textsource.NormalizeMimeType(http.DetectContentType(data), fileName)
	if textsource.KindOf(mimeType) == textsource.KindUnknown {
		return Scan{}, ErrUnsupportedType
	}

	scanID, key, err := NewStorageKey(email, fileName)
	if err != nil {
		return Scan{}, err
	}
	size, err := s.Store.SaveWithKey(ctx, key, mimeType, bytes.NewReader(data))
	if err != nil {
		return Scan{}, fmt.Errorf("store report: %w", err)
	}

	scan := Scan{
		ID:              scanID,
		UserEmail:       email,
		FileName:        path.Base(key),
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.StorageProvider,
		StorageKey:      key,
		Status:          StatusQueued,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, scan); err != nil {
		return Scan{}, fmt.Errorf("create scan: %w", err)
	}
	metrics.IncScansUploaded()

	return s.submit(ctx, scan, requestID)
}

// CreateFromUpload records a scan for a report the client already uploaded with a
// presigned URL. The key must lie in the caller's namespace.
func (s *Service) CreateFromUpload(ctx context.Context, email, key, fileName, contentType string, sizeBytes int64, requestID string) (Scan, error) {
	email = docstore.NormalizeKey(email)
	key = strings.TrimSpace(key)
	if email == "" || key == "" {
		return Scan{}, ErrInvalidInput
	}
	rest, ok := strings.CutPrefix(key, KeyPrefix(email))
	if !ok {
		return Scan{}, ErrForeignKey
	}
	scanID, _, ok := strings.Cut(rest, "/")
	if !ok || uuid.Validate(scanID) != nil {
		return Scan{}, fmt.Errorf("%w: malformed storage key", ErrInvalidInput)
	}
	if fileName == "" {
		fileName = path.Base(key)
	}

	if stater, ok := s.Store.(Stater); ok {
		size, storedType, err := stater.Stat(ctx, key)
		if err != nil {
			return Scan{}, fmt.Errorf("stat upload: %w", err)
		}
		sizeBytes = size
		if storedType != "" {
			contentType = storedType
		}
	}
	if sizeBytes <= 0 {
		return Scan{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if sizeBytes > MaxUploadBytes {
		return Scan{}, ErrTooLarge
	}
	mimeType := textsource.NormalizeMimeType(contentType, fileName)
	if textsource.KindOf(mimeType) == textsource.KindUnknown {
		return Scan{}, ErrUnsupportedType
	}

	if _, err := s.Repo.Get(ctx, scanID); err == nil {
		return Scan{}, fmt.Errorf("%w: upload already registered", ErrInvalidInput)
	} else if !errors.Is(err, ErrNotFound) {
		return Scan{}, err
	}

	scan := Scan{
		ID:              scanID,
		UserEmail:       email,
		FileName:        fileName,
		MimeType:        mimeType,
		SizeBytes:       sizeBytes,
		StorageProvider: s.StorageProvider,
		StorageKey:      key,
		Status:          StatusQueued,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, scan); err != nil {
		return Scan{}, fmt.Errorf("create scan: %w", err)
	}
	metrics.IncScansUploaded()

	return s.submit(ctx, scan, requestID)
}

// submit enqueues the scan, or processes it before returning when no queue is set.
func (s *Service) submit(ctx context.Context, scan Scan, requestID string) (Scan, error) {
	if s.Queue == nil {
		if err := s.Process(ctx, scan.ID); err != nil && !errors.Is(err, context.Canceled) {
			telemetry.Info("scans.inline_failed", map[string]any{"scan_id": scan.ID, "error": err.Error()})
		}
		return s.Repo.Get(ctx, scan.ID)
	}

	if err := s.Queue.Send(ctx, queue.NewMessage(scan.ID, requestID)); err != nil {
		s.fail(ctx, scan, err)
		return Scan{}, fmt.Errorf("enqueue scan: %w", err)
	}
	telemetry.Info("scans.enqueued", map[string]any{"scan_id": scan.ID, "request_id": requestID})
	return scan, nil
}

// Process reads the report behind scanID, extracts its lab values and applies them
// to the owner's health data. A completed scan is left untouched. Any failure marks
// the scan failed and is returned so callers can decide on a retry.
func (s *Service) Process(ctx context.Context, scanID string) (err error) {
	scan, err := s.Repo.Get(ctx, scanID)
	if err != nil {
		return err
	}
	if scan.Status == StatusCompleted {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("scans.panic", map[string]any{"scan_id": scanID, "panic": fmt.Sprint(rec)})
			err = fmt.Errorf("process scan %s: %w: %v", scanID, ErrPanicked, rec)
			s.fail(ctx, scan, err)
		}
	}()

	start := time.Now()
	if err := s.Repo.UpdateStatus(ctx, scanID, StatusUpdate{Status: StatusProcessing}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	telemetry.Info("scans.status", map[string]any{"scan_id": scanID, "from": string(scan.Status), "to": string(StatusProcessing)})

	text, err := s.Text.Text(ctx, scan.StorageKey, scan.MimeType, scan.FileName)
	if err != nil {
		s.fail(ctx, scan, err)
		return fmt.Errorf("process scan %s: %w", scanID, err)
	}

	record := bloodtest.Extract(text, s.specs())
	changed, err := s.Health.ApplyExtraction(ctx, scan.UserEmail, record)
	if err != nil {
		s.fail(ctx, scan, err)
		return fmt.Errorf("apply extraction scan %s: %w", scanID, err)
	}

	done := s.now()
	if err := s.Repo.UpdateStatus(ctx, scanID, StatusUpdate{
		Status:      StatusCompleted,
		TextKey:     scan.StorageKey + textsource.CacheSuffix,
		Record:      record,
		Changed:     changed,
		ProcessedAt: &done,
	}); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	metrics.IncScansCompleted()
	if changed {
		metrics.IncScansChanged()
	}
	metrics.ObserveScanDurationMs(metrics.SinceMs(start))
	telemetry.Info("scans.completed", map[string]any{
		"scan_id":     scanID,
		"changed":     changed,
		"missing":     record.Missing(bloodtest.Metrics...),
		"duration_ms": metrics.SinceMs(start),
	})
	return nil
}

func (s *Service) fail(ctx context.Context, scan Scan, cause error) {
	metrics.IncScansFailed()
	done := s.now()
	// The scan row is updated even when the request context is gone.
	updateCtx := context.WithoutCancel(ctx)
	if err := s.Repo.UpdateStatus(updateCtx, scan.ID, StatusUpdate{
		Status:       StatusFailed,
		ErrorMessage: userMessage(cause),
		ProcessedAt:  &done,
	}); err != nil {
		telemetry.Error("scans.fail_update", map[string]any{"scan_id": scan.ID, "error": err.Error()})
	}
	telemetry.Error("scans.failed", map[string]any{
		"scan_id":   scan.ID,
		"permanent": IsPermanent(cause),
		"error":     cause.Error(),
	})
}

// ProcessScan lets the Service act as a worker processor.
func (s *Service) ProcessScan(ctx context.Context, scanID string) error {
	return s.Process(ctx, scanID)
}

// Get returns one of email's scans.
func (s *Service) Get(ctx context.Context, email, scanID string) (Scan, error) {
	email = docstore.NormalizeKey(email)
	if email == "" || strings.TrimSpace(scanID) == "" {
		return Scan{}, ErrInvalidInput
	}
	return s.Repo.GetForUser(ctx, email, scanID)
}

// List returns email's scans, newest first.
func (s *Service) List(ctx context.Context, email string, limit, offset int) ([]Scan, error) {
	email = docstore.NormalizeKey(email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, email, limit, offset)
}
