package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"hemotwin-backend/internal/shared/storage/docstore"
)

// fakeTree stores JSON by path like the Realtime Database REST API.
type fakeTree map[string][]byte

type fakeNode struct {
	tree fakeTree
	path string
}

func (n fakeNode) Get(ctx context.Context, v interface{}) error {
	raw, ok := n.tree[n.path]
	if !ok {
		raw = []byte("null")
	}
	return json.Unmarshal(raw, v)
}

func (n fakeNode) Set(ctx context.Context, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	n.tree[n.path] = raw
	return nil
}

func newFakeStore() (*Store, fakeTree) {
	tree := fakeTree{}
	return &Store{ref: func(path string) node { return fakeNode{tree: tree, path: path} }}, tree
}

func TestStoreRoundTrip(t *testing.T) {
	store, tree := newFakeStore()
	ctx := context.Background()

	type profile struct {
		FirstName string `json:"firstName"`
	}

	var got profile
	if err := store.Get(ctx, docstore.CollectionPatients, "jane.doe@example.com", &got); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, docstore.CollectionPatients, "jane.doe@example.com", profile{FirstName: "Jane"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := tree["patients/jane%2Edoe@example%2Ecom"]; !ok {
		t.Fatalf("expected encoded path, have %v", tree)
	}
	if err := store.Get(ctx, docstore.CollectionPatients, "jane.doe@example.com", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstName != "Jane" {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestEncodeKey(t *testing.T) {
	tests := map[string]string{
		"plain":         "plain",
		"a.b@c.d":       "a%2Eb@c%2Ed",
		"x#y$z[1]/2%":   "x%23y%24z%5B1%5D%2F2%25",
		"ünïcode@ex.io": "ünïcode@ex%2Eio",
	}
	for in, want := range tests {
		if got := EncodeKey(in); got != want {
			t.Fatalf("EncodeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
