// Package workerproc decodes scan jobs from the queue and hands them to a processor.
// It is shared by the polling worker and the Lambda worker.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"hemotwin-backend/internal/queue"
	"hemotwin-backend/internal/scans"
	"hemotwin-backend/internal/shared/telemetry"
)

// Processor runs the extraction pipeline for one scan.
type Processor interface {
	ProcessScan(ctx context.Context, scanID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingScanID indicates a message without a scan id.
type ErrMissingScanID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingScanID) Error() string { return "missing scan id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ScanID    string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process scan"
	}
	return "process scan: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ScanID) == "" {
		return msg, meta, ErrMissingScanID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	if proc == nil {
		return errors.New("scan processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(msg.ScanID) == "" {
		return ErrMissingScanID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	telemetry.Debug("worker.scan_start", map[string]any{"scan_id": msg.ScanID, "request_id": msg.RequestID})
	if err := proc.ProcessScan(ctx, msg.ScanID); err != nil {
		return ErrProcess{ScanID: msg.ScanID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Discard reports whether the message behind err should be removed from the queue
// instead of redelivered. Malformed payloads and permanent scan failures are
// discarded; everything else is retried.
func Discard(err error) bool {
	if err == nil {
		return true
	}
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingScanID
	)
	if errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing) {
		return true
	}
	return scans.IsPermanent(err)
}
