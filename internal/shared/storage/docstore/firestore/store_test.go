package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/shared/storage/docstore"
)

// fakeDocs keeps field maps by document path the way Firestore returns them.
type fakeDocs map[string]map[string]any

type fakeDoc struct {
	docs fakeDocs
	path string
	err  error
}

func (d fakeDoc) Get(ctx context.Context) (map[string]any, error) {
	if d.err != nil {
		return nil, d.err
	}
	data, ok := d.docs[d.path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return data, nil
}

func (d fakeDoc) Set(ctx context.Context, data map[string]any) error {
	if d.err != nil {
		return d.err
	}
	d.docs[d.path] = data
	return nil
}

func newFakeStore(err error) (*Store, fakeDocs) {
	docs := fakeDocs{}
	return &Store{doc: func(path string) document { return fakeDoc{docs: docs, path: path, err: err} }}, docs
}

func TestStoreRoundTrip(t *testing.T) {
	store, docs := newFakeStore(nil)
	ctx := context.Background()

	type profile struct {
		FirstName string    `json:"firstName"`
		CreatedAt time.Time `json:"createdAt"`
	}
	created := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	var got profile
	if err := store.Get(ctx, docstore.CollectionPatients, "jane.doe@example.com", &got); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, docstore.CollectionPatients, "jane.doe@example.com", profile{FirstName: "Jane", CreatedAt: created}); err != nil {
		t.Fatalf("set: %v", err)
	}
	fields, ok := docs["patients/jane.doe@example.com"]
	if !ok {
		t.Fatalf("expected document at email id, have %v", docs)
	}
	if fields["firstName"] != "Jane" {
		t.Fatalf("expected json field names, got %v", fields)
	}
	if err := store.Get(ctx, docstore.CollectionPatients, "jane.doe@example.com", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstName != "Jane" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestStoreKeepsMissingLabValues(t *testing.T) {
	store, docs := newFakeStore(nil)
	ctx := context.Background()

	rec := bloodtest.LabRecord{bloodtest.MetricWBC: bloodtest.Found(7500), bloodtest.MetricRBC: bloodtest.NotFound}
	if err := store.Set(ctx, docstore.CollectionHealthData, "ana@example.com", rec); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := docs["healthData/ana@example.com"]["rbc"]; !ok || v != nil {
		t.Fatalf("expected null rbc field, got %v (present=%v)", v, ok)
	}

	// Documents written by the mobile app hold numbers as strings.
	docs["healthData/bob@example.com"] = map[string]any{"wbc": "8100", "rbc": ""}

	var got bloodtest.LabRecord
	if err := store.Get(ctx, docstore.CollectionHealthData, "bob@example.com", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if v, ok := got.Get(bloodtest.MetricWBC); !ok || v != 8100 {
		t.Fatalf("expected wbc 8100, got %v", got)
	}
	if got[bloodtest.MetricRBC].IsFound() {
		t.Fatalf("expected empty rbc to decode as missing")
	}
}

func TestStoreRejectsNonObjects(t *testing.T) {
	store, _ := newFakeStore(nil)
	if err := store.Set(context.Background(), docstore.CollectionPatients, "a@b.co", []string{"x"}); err == nil {
		t.Fatal("expected error for non-object document")
	}
}

func TestStoreWrapsBackendErrors(t *testing.T) {
	unavailable := errors.New("unavailable")
	store, _ := newFakeStore(unavailable)
	ctx := context.Background()

	var out map[string]any
	if err := store.Get(ctx, docstore.CollectionPatients, "a@b.co", &out); !errors.Is(err, unavailable) || errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if err := store.Set(ctx, docstore.CollectionPatients, "a@b.co", map[string]any{"k": "v"}); !errors.Is(err, unavailable) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}

func TestDocumentPathEscapesSlashes(t *testing.T) {
	if got := documentPath(docstore.CollectionPatients, "a/b@c.d"); got != "patients/a%2Fb@c.d" {
		t.Fatalf("unexpected path %q", got)
	}
}
