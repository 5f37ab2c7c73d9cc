package kb

import (
	"context"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/scrypster/entitylink/internal/embedding"
	"github.com/scrypster/entitylink/internal/storage"
	"github.com/scrypster/entitylink/pkg/types"
)

// Config tunes candidate generation.
type Config struct {
	// MaxDistance drops alias matches whose cosine distance to the
	// mention exceeds it, before candidate fan-out. Zero selects
	// DefaultMaxDistance; a negative value disables the filter.
	MaxDistance float64
}

// DefaultMaxDistance is the alias-match distance bound used when the
// config leaves it unset.
const DefaultMaxDistance = 0.5

// KnowledgeBase composes the entity and alias stores and turns a raw
// mention string into a ranked candidate list. It is the unit injected
// into the Linker.
type KnowledgeBase struct {
	entities *EntityStore
	aliases  *AliasStore
	encoder  embedding.Encoder
	cfg      Config
}

// New creates a knowledge base over two vector tables. The same encoder is
// used for entities, aliases and mention queries, so all embeddings share
// one dimensionality.
func New(encoder embedding.Encoder, entityIndex, aliasIndex storage.VectorIndex, cfg Config) *KnowledgeBase {
	if cfg.MaxDistance == 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}
	entities := NewEntityStore(entityIndex, encoder)
	return &KnowledgeBase{
		entities: entities,
		aliases:  NewAliasStore(aliasIndex, encoder, entities),
		encoder:  encoder,
		cfg:      cfg,
	}
}

// AddEntities ingests entities. Entities must be added before the aliases
// that reference them.
func (kb *KnowledgeBase) AddEntities(ctx context.Context, entities []types.Entity) error {
	return kb.entities.Add(ctx, entities)
}

// AddAliases ingests aliases, validating every entity reference against
// the entity store.
func (kb *KnowledgeBase) AddAliases(ctx context.Context, aliases []types.Alias) error {
	return kb.aliases.Add(ctx, aliases)
}

// Entity retrieves a stored entity by id. Returns storage.ErrNotFound when
// absent.
func (kb *KnowledgeBase) Entity(ctx context.Context, id string) (*types.Entity, error) {
	return kb.entities.Get(ctx, id)
}

// CandidatesFor resolves a mention to a ranked candidate list:
//
//  1. Embed the mention and run a KNN search over the alias table.
//  2. Drop matches beyond the MaxDistance bound.
//  3. Fan each alias row out into (entity, prior) contributions with
//     aliasScore = 1/(1+distance).
//  4. Merge duplicate entity ids across rows, keeping the maximum
//     aliasScore*prior contribution.
//  5. Sort by combined score descending.
//
// The 1/(1+distance) transform and the tie-breaks (lower edit distance of
// the alias text to the mention, then entity id ascending) are part of the
// contract: scores and ordering are comparable across backends and stable
// across calls.
func (kb *KnowledgeBase) CandidatesFor(ctx context.Context, mention string, k int) ([]types.Candidate, error) {
	matches, err := kb.aliasMatches(ctx, mention, k)
	if err != nil {
		return nil, err
	}

	best := make(map[string]types.Candidate)
	for _, m := range matches {
		aliasScore := 1 / (1 + m.Distance)
		for i, entityID := range m.Alias.Entities {
			cand := types.Candidate{
				EntityID:      entityID,
				Alias:         m.Alias.Alias,
				AliasScore:    aliasScore,
				Prior:         m.Alias.Probabilities[i],
				CombinedScore: aliasScore * m.Alias.Probabilities[i],
			}
			prev, ok := best[entityID]
			if !ok || betterContribution(cand, prev, mention) {
				best[entityID] = cand
			}
		}
	}

	candidates := make([]types.Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		da := levenshtein.ComputeDistance(a.Alias, mention)
		db := levenshtein.ComputeDistance(b.Alias, mention)
		if da != db {
			return da < db
		}
		return a.EntityID < b.EntityID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// EntityCandidates returns the distinct entity ids reachable from alias
// matches for the mention, sorted ascending. Useful for callers that run
// their own downstream disambiguation.
func (kb *KnowledgeBase) EntityCandidates(ctx context.Context, mention string, k int) ([]string, error) {
	matches, err := kb.aliasMatches(ctx, mention, k)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var ids []string
	for _, m := range matches {
		for _, id := range m.Alias.Entities {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// aliasMatches embeds the mention, searches the alias table and applies
// the MaxDistance filter.
func (kb *KnowledgeBase) aliasMatches(ctx context.Context, mention string, k int) ([]AliasMatch, error) {
	qvec, err := kb.encoder.Encode(ctx, mention)
	if err != nil {
		return nil, fmt.Errorf("kb: encode mention: %w", err)
	}

	matches, err := kb.aliases.Search(ctx, qvec, k)
	if err != nil {
		return nil, err
	}

	if kb.cfg.MaxDistance <= 0 {
		return matches, nil
	}
	filtered := matches[:0]
	for _, m := range matches {
		if m.Distance <= kb.cfg.MaxDistance {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// betterContribution reports whether a should replace b as the kept
// contribution for one entity: higher combined score wins, ties go to the
// alias text closer to the mention, then to the lexicographically smaller
// alias so merging is deterministic.
func betterContribution(a, b types.Candidate, mention string) bool {
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore > b.CombinedScore
	}
	da := levenshtein.ComputeDistance(a.Alias, mention)
	db := levenshtein.ComputeDistance(b.Alias, mention)
	if da != db {
		return da < db
	}
	return a.Alias < b.Alias
}
