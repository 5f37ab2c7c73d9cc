package importer

import (
	"context"
	"time"

	"github.com/scrypster/entitylink/internal/kb"
)

// ImportResult is the summary produced by a completed ingest.
type ImportResult struct {
	EntitiesAdded int           `json:"entities_added"`
	AliasesAdded  int           `json:"aliases_added"`
	Duration      time.Duration `json:"duration_ms"`
}

// Ingest writes a seed into the knowledge base, entities before the
// aliases that reference them. Each section is an all-or-nothing batch:
// a validation failure in the alias section leaves the alias table
// untouched but does not roll back the entity section.
func Ingest(ctx context.Context, knowledgeBase *kb.KnowledgeBase, seed *Seed) (*ImportResult, error) {
	start := time.Now()

	if len(seed.Entities) > 0 {
		if err := knowledgeBase.AddEntities(ctx, seed.Entities); err != nil {
			return nil, err
		}
	}
	if len(seed.Aliases) > 0 {
		if err := knowledgeBase.AddAliases(ctx, seed.Aliases); err != nil {
			return nil, err
		}
	}

	return &ImportResult{
		EntitiesAdded: len(seed.Entities),
		AliasesAdded:  len(seed.Aliases),
		Duration:      time.Since(start),
	}, nil
}
