package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/scrypster/entitylink/internal/storage"
)

// mustUpsert is a test helper that upserts rows and fails the test on error.
func mustUpsert(t *testing.T, idx *Index, rows ...storage.Row) {
	t.Helper()
	if err := idx.Upsert(context.Background(), rows); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
}

func TestSearch_RanksByCosineDistance(t *testing.T) {
	idx := NewIndex(2)
	ctx := context.Background()

	mustUpsert(t, idx,
		storage.Row{Key: "east", Vector: []float32{1, 0}},
		storage.Row{Key: "north", Vector: []float32{0, 1}},
		storage.Row{Key: "northeast", Vector: []float32{1, 1}},
	)

	matches, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Row.Key != "east" {
		t.Errorf("expected east first, got %q", matches[0].Row.Key)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("identical direction should have ~0 distance, got %g", matches[0].Distance)
	}
	if matches[2].Row.Key != "north" {
		t.Errorf("expected orthogonal vector last, got %q", matches[2].Row.Key)
	}
}

func TestSearch_FewerRowsThanK(t *testing.T) {
	idx := NewIndex(2)
	mustUpsert(t, idx, storage.Row{Key: "only", Vector: []float32{1, 1}})

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestSearch_TieBreaksOnKey(t *testing.T) {
	idx := NewIndex(2)
	mustUpsert(t, idx,
		storage.Row{Key: "b", Vector: []float32{1, 0}},
		storage.Row{Key: "a", Vector: []float32{2, 0}}, // same direction as b
	)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if matches[0].Row.Key != "a" || matches[1].Row.Key != "b" {
		t.Errorf("equal distances must order by key, got %q then %q",
			matches[0].Row.Key, matches[1].Row.Key)
	}
}

func TestUpsert_ReplacesExistingKey(t *testing.T) {
	idx := NewIndex(2)
	ctx := context.Background()

	mustUpsert(t, idx, storage.Row{Key: "k", Text: "old", Vector: []float32{1, 0}})
	mustUpsert(t, idx, storage.Row{Key: "k", Text: "new", Vector: []float32{0, 1}})

	row, err := idx.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if row.Text != "new" {
		t.Errorf("expected replaced row, got text %q", row.Text)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after replace, got %d", count)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	idx := NewIndex(2)
	err := idx.Upsert(context.Background(), []storage.Row{
		{Key: "bad", Vector: []float32{1, 2, 3}},
	})
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestUpsert_RejectsBatchBeforeAnyWrite(t *testing.T) {
	idx := NewIndex(2)
	err := idx.Upsert(context.Background(), []storage.Row{
		{Key: "good", Vector: []float32{1, 0}},
		{Key: "", Vector: []float32{0, 1}},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	count, err := idx.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rejected batch must not be partially applied, found %d rows", count)
	}
}

func TestGet_NotFound(t *testing.T) {
	idx := NewIndex(2)
	_, err := idx.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
