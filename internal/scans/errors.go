package scans

import (
	"context"
	"errors"

	"hemotwin-backend/internal/ocr"
	"hemotwin-backend/internal/shared/storage/object"
	"hemotwin-backend/internal/textsource"
)

var (
	ErrNotFound        = errors.New("scan not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG, WEBP or PDF")
	ErrTooLarge        = errors.New("file exceeds the upload limit")
	ErrForeignKey      = errors.New("storage key does not belong to the caller")
	ErrPanicked        = errors.New("scan processing panicked")
)

// IsPermanent reports whether processing failed in a way a retry cannot fix.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var procErr *ocr.ProcessingError
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, textsource.ErrUnsupportedType),
		errors.Is(err, textsource.ErrUnreadable),
		errors.Is(err, ErrPanicked),
		errors.Is(err, ocr.ErrNotConfigured),
		errors.Is(err, ocr.ErrEmptyImage),
		errors.Is(err, object.ErrNotFound),
		errors.Is(err, object.ErrTooLarge),
		errors.As(err, &procErr):
		return true
	}
	var upstream *ocr.UpstreamError
	if errors.As(err, &upstream) {
		return !upstream.Temporary()
	}
	return false
}

// userMessage is the failure text stored on a scan and shown to the patient.
func userMessage(err error) string {
	var procErr *ocr.ProcessingError
	switch {
	case errors.Is(err, textsource.ErrUnsupportedType):
		return "unsupported file type"
	case errors.Is(err, textsource.ErrUnreadable), errors.Is(err, ErrPanicked):
		return "the report could not be read"
	case errors.Is(err, ocr.ErrNotConfigured):
		return "text recognition is not configured"
	case errors.As(err, &procErr), errors.Is(err, ocr.ErrEmptyImage):
		return "the report could not be read, try a clearer photo"
	case errors.Is(err, object.ErrNotFound):
		return "uploaded file is missing"
	case errors.Is(err, object.ErrTooLarge):
		return "uploaded file is too large"
	case errors.Is(err, context.DeadlineExceeded):
		return "text recognition timed out, try again later"
	default:
		return "failed to process the report, try again later"
	}
}
