package workerproc

import (
	"context"
	"errors"
	"testing"

	"hemotwin-backend/internal/ocr"
	"hemotwin-backend/internal/queue"
	"hemotwin-backend/internal/scans"
)

type fakeProcessor struct {
	calls []string
	err   error
}

func (f *fakeProcessor) ProcessScan(ctx context.Context, scanID string) error {
	f.calls = append(f.calls, scanID)
	return f.err
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr any
	}{
		{name: "valid", body: `{"scanId":"scan-1","version":1}`},
		{name: "empty", body: "  ", wantErr: ErrEmptyBody{}},
		{name: "bad json", body: "{", wantErr: ErrDecode{}},
		{name: "missing id", body: `{"requestId":"req-1"}`, wantErr: ErrMissingScanID{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, meta, err := ParseMessage(tt.body)
			switch tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if msg.ScanID != "scan-1" || meta.BodyLen != len(tt.body) || meta.BodySHA == "" {
					t.Fatalf("unexpected result: %+v %+v", msg, meta)
				}
			case ErrEmptyBody:
				var target ErrEmptyBody
				if !errors.As(err, &target) {
					t.Fatalf("expected ErrEmptyBody, got %v", err)
				}
			case ErrDecode:
				var target ErrDecode
				if !errors.As(err, &target) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
			case ErrMissingScanID:
				var target ErrMissingScanID
				if !errors.As(err, &target) || target.RequestID != "req-1" {
					t.Fatalf("expected ErrMissingScanID with request id, got %v", err)
				}
			}
			if tt.wantErr != nil && !Discard(err) {
				t.Fatalf("expected malformed message to be discarded: %v", err)
			}
		})
	}
}

func TestHandleMessage(t *testing.T) {
	proc := &fakeProcessor{}
	if err := HandleMessage(context.Background(), proc, `{"scanId":"scan-7"}`); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.calls) != 1 || proc.calls[0] != "scan-7" {
		t.Fatalf("unexpected calls: %v", proc.calls)
	}

	ctx := WithParsedMessage(context.Background(), queue.NewMessage("scan-8", "req-8"))
	if err := HandleMessage(ctx, proc, "ignored"); err != nil {
		t.Fatalf("HandleMessage with parsed message: %v", err)
	}
	if proc.calls[1] != "scan-8" {
		t.Fatalf("expected parsed message to be used, got %v", proc.calls)
	}

	if err := HandleMessage(context.Background(), nil, `{"scanId":"x"}`); err == nil {
		t.Fatal("expected error without processor")
	}
}

func TestHandleMessageProcessErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantDiscard bool
	}{
		{name: "scan gone", err: scans.ErrNotFound, wantDiscard: true},
		{name: "unreadable image", err: &ocr.ProcessingError{Message: "bad image"}, wantDiscard: true},
		{name: "provider unavailable", err: &ocr.UpstreamError{StatusCode: 503}, wantDiscard: false},
		{name: "database blip", err: errors.New("connection reset"), wantDiscard: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			proc := &fakeProcessor{err: tt.err}
			err := HandleMessage(context.Background(), proc, `{"scanId":"scan-1","requestId":"req-1"}`)
			var procErr ErrProcess
			if !errors.As(err, &procErr) || procErr.ScanID != "scan-1" || procErr.RequestID != "req-1" {
				t.Fatalf("expected ErrProcess, got %v", err)
			}
			if got := Discard(err); got != tt.wantDiscard {
				t.Fatalf("Discard = %v, want %v", got, tt.wantDiscard)
			}
		})
	}
}
