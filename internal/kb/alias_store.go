package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/scrypster/entitylink/internal/embedding"
	"github.com/scrypster/entitylink/internal/storage"
	"github.com/scrypster/entitylink/pkg/types"
)

// AliasStore owns alias records and their surface-form embeddings, backed
// by one vector table. Rows are keyed by a fresh UUID rather than the
// alias text: re-adding the same alias appends a parallel row, and
// duplicates are merged at query time.
type AliasStore struct {
	index    storage.VectorIndex
	encoder  embedding.Encoder
	entities *EntityStore

	mu sync.Mutex // at most one in-flight Add per store
}

// NewAliasStore creates an alias store over the given vector table.
// entities is the store aliases are validated against.
func NewAliasStore(index storage.VectorIndex, encoder embedding.Encoder, entities *EntityStore) *AliasStore {
	return &AliasStore{index: index, encoder: encoder, entities: entities}
}

// AliasMatch is one alias row returned by Search, with its cosine distance
// to the query vector.
type AliasMatch struct {
	Alias    types.Alias
	Distance float64
}

// Add ingests a batch of aliases. Every alias is validated first — local
// invariants, then entity references against the entity store — and only a
// fully valid batch is encoded and written, so the store never holds a
// partially applied batch. Returns *types.InvalidAliasError on the first
// malformed alias.
func (s *AliasStore) Add(ctx context.Context, aliases []types.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range aliases {
		if err := a.Validate(); err != nil {
			return err
		}
		for _, id := range a.Entities {
			exists, err := s.entities.Exists(ctx, id)
			if err != nil {
				return fmt.Errorf("kb: check entity %q for alias %q: %w", id, a.Alias, err)
			}
			if !exists {
				return &types.InvalidAliasError{
					Alias:  a.Alias,
					Reason: types.ReasonUnknownEntityRef,
					Detail: fmt.Sprintf("entity %q not in entity store", id),
				}
			}
		}
	}

	rows := make([]storage.Row, 0, len(aliases))
	for _, a := range aliases {
		if len(a.Embedding) == 0 {
			vec, err := s.encoder.Encode(ctx, a.Alias)
			if err != nil {
				return fmt.Errorf("kb: encode alias %q: %w", a.Alias, err)
			}
			a.Embedding = vec
		}

		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("kb: marshal alias %q: %w", a.Alias, err)
		}
		rows = append(rows, storage.Row{
			Key:     uuid.NewString(),
			Text:    a.Alias,
			Payload: payload,
			Vector:  a.Embedding,
		})
	}

	if err := s.index.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("kb: upsert aliases: %w", err)
	}
	if err := s.index.RefreshIndex(ctx); err != nil {
		return fmt.Errorf("kb: refresh alias index: %w", err)
	}
	return nil
}

// Search returns the k nearest alias rows to vector, ordered by cosine
// distance ascending. Fewer than k rows come back when the store holds
// fewer.
func (s *AliasStore) Search(ctx context.Context, vector []float32, k int) ([]AliasMatch, error) {
	matches, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("kb: search aliases: %w", err)
	}

	out := make([]AliasMatch, 0, len(matches))
	for _, m := range matches {
		var a types.Alias
		if err := json.Unmarshal(m.Row.Payload, &a); err != nil {
			return nil, fmt.Errorf("kb: unmarshal alias row %q: %w", m.Row.Key, err)
		}
		a.Embedding = m.Row.Vector
		out = append(out, AliasMatch{Alias: a, Distance: m.Distance})
	}
	return out, nil
}

// Count returns the number of stored alias rows.
func (s *AliasStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}
