package io

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// TestMongoStore runs against a live server named by
// SPARSETREE_TEST_MONGO_URI, e.g. mongodb://localhost:27017.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SPARSETREE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SPARSETREE_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewMongoStore(ctx, uri, "sparsetree_test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	t.Cleanup(func() { _ = store.coll.Drop(context.Background()) })

	s, err := FromTree(buildTree(t), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	// Publishing again replaces the document.
	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Name != "demo" || len(got.Nodes) != len(s.Nodes) {
		t.Errorf("Get() = %s %q with %d nodes", got.ID, got.Name, len(got.Nodes))
	}

	list, err := store.List(ctx, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != s.ID || list[0].Nodes != 7 {
		t.Errorf("List() = %+v", list)
	}

	if _, err := store.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestMongoStorePutRejectsInvalid(t *testing.T) {
	store := &MongoStore{}
	if err := store.Put(context.Background(), &Snapshot{Name: "empty"}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Put(empty) error = %v", err)
	}
	if err := store.Put(context.Background(), &Snapshot{Nodes: []Node{{Parent: -1, Exponent: -1, Grad: -1}}}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Put(no id) error = %v", err)
	}
}
