// Package textsource turns a stored report file into plain text: PDFs through their
// embedded text layer, images through an OCR provider. Results are cached next to the
// source object so reprocessing a scan does not call the provider again.
package textsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"hemotwin-backend/internal/ocr"
	"hemotwin-backend/internal/shared/metrics"
	"hemotwin-backend/internal/shared/storage/object"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"

	// CacheSuffix is appended to a storage key to form the cached text key.
	CacheSuffix = ".ocr.txt"

	// MaxSourceBytes bounds the size of a report file read back from storage.
	MaxSourceBytes = 10 << 20
)

var (
	// ErrUnsupportedType is returned for files that are neither a PDF nor a supported image.
	ErrUnsupportedType = errors.New("unsupported report type")
	// ErrUnreadable is returned for PDFs whose structure cannot be parsed.
	ErrUnreadable = errors.New("report file is unreadable")
)

// Kind classifies a report file.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
)

// Source reads report text.
type Source struct {
	Store object.ObjectStore
	OCR   ocr.Provider
}

// New creates a Source. A nil provider selects ocr.Placeholder.
func New(store object.ObjectStore, provider ocr.Provider) *Source {
	if provider == nil {
		provider = ocr.Placeholder{}
	}
	return &Source{Store: store, OCR: provider}
}

// Text returns the text of the object at key, using the cached copy when present
// and persisting a fresh one otherwise.
func (s *Source) Text(ctx context.Context, key, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cacheKey := key + CacheSuffix
	cached, err := object.ReadAll(ctx, s.Store, cacheKey, 0)
	switch {
	case err == nil:
		return string(cached), nil
	case !errors.Is(err, object.ErrNotFound):
		return "", fmt.Errorf("read cached text key=%s: %w", cacheKey, err)
	}

	raw, err := object.ReadAll(ctx, s.Store, key, MaxSourceBytes)
	if err != nil {
		return "", fmt.Errorf("read report key=%s: %w", key, err)
	}

	text, err := s.FromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("text key=%s mime=%s: %w", key, mimeType, err)
	}

	if _, err := s.Store.SaveWithKey(ctx, cacheKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("cache text key=%s: %w", cacheKey, err)
	}
	return text, nil
}

// FromBytes extracts text from an in-memory report. A PDF without a text layer is
// sent to the OCR provider like an image.
func (s *Source) FromBytes(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mimeType = NormalizeMimeType(mimeType, fileName)
	switch KindOf(mimeType) {
	case KindPDF:
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("pdf text layer: %w", err)
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		return s.recognize(ctx, data, mimeType, fileName)
	case KindImage:
		return s.recognize(ctx, data, mimeType, fileName)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func (s *Source) recognize(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	metrics.IncOCRRequests()
	text, err := s.OCR.Recognize(ctx, ocr.Image{Name: fileName, MimeType: mimeType, Data: data})
	if err != nil {
		metrics.IncOCRFailures()
		return "", err
	}
	return text, nil
}

// KindOf maps a normalized content type to a report kind.
func KindOf(mimeType string) Kind {
	switch mimeType {
	case MimePDF:
		return KindPDF
	case MimeJPEG, MimePNG, MimeWEBP:
		return KindImage
	default:
		return KindUnknown
	}
}

// NormalizeMimeType strips parameters and falls back to the file extension when
// the declared type is missing or generic.
func NormalizeMimeType(mimeType, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case "image/jpg", "image/pjpeg":
		return MimeJPEG
	case "", "application/octet-stream", "binary/octet-stream":
	default:
		return clean
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".jpg", ".jpeg":
		return MimeJPEG
	case ".png":
		return MimePNG
	case ".webp":
		return MimeWEBP
	default:
		return clean
	}
}

// pdfText reads the text layer. The pdf package panics on some malformed objects,
// so panics and parse errors both come back as ErrUnreadable.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return buf.String(), nil
}
