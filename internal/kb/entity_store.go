// Package kb implements the knowledge base of the linking engine: the
// entity and alias stores over their vector tables, batch ingestion with
// validate-then-commit semantics, and candidate generation for mentions.
package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/scrypster/entitylink/internal/embedding"
	"github.com/scrypster/entitylink/internal/storage"
	"github.com/scrypster/entitylink/pkg/types"
)

// ErrDuplicateEntity indicates insertion of an entity id already present.
// The store is insert-only; entities are immutable once stored.
var ErrDuplicateEntity = errors.New("duplicate entity id")

// EntityStore owns canonical entity records and their description
// embeddings, backed by one vector table keyed by entity id.
type EntityStore struct {
	index   storage.VectorIndex
	encoder embedding.Encoder

	mu sync.Mutex // at most one in-flight Add per store
}

// NewEntityStore creates an entity store over the given vector table.
func NewEntityStore(index storage.VectorIndex, encoder embedding.Encoder) *EntityStore {
	return &EntityStore{index: index, encoder: encoder}
}

// Add ingests a batch of entities. The whole batch is validated before any
// row is written, so a duplicate id anywhere rejects the batch in full.
// Missing embeddings are computed from the description (falling back to
// the name when the description is empty). The backing index is refreshed
// after the batch so subsequent searches see the new rows.
func (s *EntityStore) Add(ctx context.Context, entities []types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if e.ID == "" {
			return fmt.Errorf("kb: entity with empty id: %w", storage.ErrInvalidInput)
		}
		if seen[e.ID] {
			return fmt.Errorf("kb: entity %q appears twice in batch: %w", e.ID, ErrDuplicateEntity)
		}
		seen[e.ID] = true

		exists, err := s.exists(ctx, e.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("kb: entity %q: %w", e.ID, ErrDuplicateEntity)
		}
	}

	rows := make([]storage.Row, 0, len(entities))
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			text := e.Description
			if text == "" {
				text = e.Name
			}
			vec, err := s.encoder.Encode(ctx, text)
			if err != nil {
				return fmt.Errorf("kb: encode entity %q: %w", e.ID, err)
			}
			e.Embedding = vec
		}

		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("kb: marshal entity %q: %w", e.ID, err)
		}
		rows = append(rows, storage.Row{
			Key:     e.ID,
			Text:    e.Name,
			Payload: payload,
			Vector:  e.Embedding,
		})
	}

	if err := s.index.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("kb: upsert entities: %w", err)
	}
	if err := s.index.RefreshIndex(ctx); err != nil {
		return fmt.Errorf("kb: refresh entity index: %w", err)
	}
	return nil
}

// Get retrieves an entity by id. Returns storage.ErrNotFound when absent;
// a missing entity is an expected outcome during resolution, not a
// failure.
func (s *EntityStore) Get(ctx context.Context, id string) (*types.Entity, error) {
	row, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var e types.Entity
	if err := json.Unmarshal(row.Payload, &e); err != nil {
		return nil, fmt.Errorf("kb: unmarshal entity %q: %w", id, err)
	}
	e.Embedding = row.Vector
	return &e, nil
}

// Exists reports whether the entity id is present. Used by the alias store
// to validate entity references at insertion time.
func (s *EntityStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, id)
}

func (s *EntityStore) exists(ctx context.Context, id string) (bool, error) {
	_, err := s.index.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of stored entities.
func (s *EntityStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}
