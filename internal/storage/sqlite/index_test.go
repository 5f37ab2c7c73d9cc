package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/scrypster/entitylink/internal/storage"
)

// newTestIndex opens a store in a temp directory and returns a fresh index.
func newTestIndex(t *testing.T) *Index {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	idx, err := store.Index("aliases", 3)
	if err != nil {
		t.Fatalf("Index() failed: %v", err)
	}
	return idx
}

func TestUpsertSearchRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, []storage.Row{
		{Key: "r1", Text: "machine learning", Payload: []byte(`{"alias":"ML"}`), Vector: []float32{1, 0, 0}},
		{Key: "r2", Text: "natural language", Payload: []byte(`{"alias":"NLP"}`), Vector: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Row.Key != "r1" {
		t.Errorf("expected r1 nearest, got %q", matches[0].Row.Key)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("identical direction should have ~0 distance, got %g", matches[0].Distance)
	}
	if string(matches[0].Row.Payload) != `{"alias":"ML"}` {
		t.Errorf("payload not preserved: %s", matches[0].Row.Payload)
	}
}

func TestGetAndCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, []storage.Row{
		{Key: "k1", Text: "one", Vector: []float32{1, 2, 3}},
	}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	row, err := idx.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if row.Text != "one" {
		t.Errorf("expected text %q, got %q", "one", row.Text)
	}
	if len(row.Vector) != 3 || row.Vector[2] != 3 {
		t.Errorf("vector not preserved through blob round trip: %v", row.Vector)
	}

	if _, err := idx.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestUpsert_ReplaceOnConflict(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, []storage.Row{{Key: "k", Text: "old", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Upsert(ctx, []storage.Row{{Key: "k", Text: "new", Vector: []float32{0, 0, 1}}}); err != nil {
		t.Fatalf("Upsert() replace failed: %v", err)
	}

	row, err := idx.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if row.Text != "new" {
		t.Errorf("expected replaced text, got %q", row.Text)
	}

	count, _ := idx.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 row after replace, got %d", count)
	}
}

func TestUpsert_DimensionMismatchRejectsBatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, []storage.Row{
		{Key: "good", Vector: []float32{1, 0, 0}},
		{Key: "bad", Vector: []float32{1, 0}},
	})
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rejected batch must not be partially applied, found %d rows", count)
	}
}

func TestIndex_InvalidTableName(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Index("aliases; DROP TABLE aliases", 3); err == nil {
		t.Fatal("expected invalid table name to be rejected")
	}
}
