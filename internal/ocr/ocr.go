package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Provider turns an image of a report into raw text.
type Provider interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// Image is an uploaded report photo.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

var (
	// ErrNotConfigured is returned by the placeholder provider.
	ErrNotConfigured = errors.New("ocr provider not configured")
	// ErrEmptyImage is returned when there is nothing to recognize.
	ErrEmptyImage = errors.New("empty image")
)

// UpstreamError is a non-success response from an OCR service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ocr upstream http status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ProcessingError means the service accepted the image but could not read it.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string {
	return "ocr processing failed: " + e.Message
}

// Placeholder is used when no OCR credentials are configured.
type Placeholder struct{}

// Recognize returns ErrNotConfigured.
func (Placeholder) Recognize(ctx context.Context, img Image) (string, error) {
	_ = ctx
	_ = img
	return "", ErrNotConfigured
}
