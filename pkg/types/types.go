// Package types defines the core value types of the entity-linking engine:
// entities, aliases, candidates and link results. The package is
// dependency-free so it can be imported by every layer, including external
// callers that only need the wire types.
package types

// NIL is the sentinel entity id meaning "no entity link was established".
// It is distinct from every valid entity id and from the empty string, so
// an unset field can be told apart from a deliberate no-link decision.
const NIL = "NIL"

// Entity is a canonical knowledge-base entry. Entities are immutable once
// stored; re-adding an existing id is rejected.
type Entity struct {
	// ID uniquely identifies the entity across the knowledge base.
	ID string `json:"entity_id" yaml:"entity_id"`

	// Name is the display string.
	Name string `json:"name" yaml:"name"`

	// Description is free text used to build the disambiguation embedding.
	Description string `json:"description" yaml:"description"`

	// Label is an optional type tag (e.g. "SKILL", "ORG"). Metadata only;
	// it never participates in scoring.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Embedding is the description vector. When empty it is computed at
	// insertion time from Description.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// Alias maps a surface form to one or more candidate entities with prior
// probabilities. The same alias text may be added more than once; rows
// accumulate and are merged at query time.
type Alias struct {
	// Alias is the surface form matched against mentions.
	Alias string `json:"alias" yaml:"alias"`

	// Entities lists the entity ids this alias may refer to, length >= 1.
	Entities []string `json:"entities" yaml:"entities"`

	// Probabilities holds the prior for each entry of Entities, same
	// length, each in [0, 1], summing to at most 1. The residual mass
	// represents "none of the above".
	Probabilities []float64 `json:"probabilities" yaml:"probabilities"`

	// Embedding is the alias-text vector, computed at insertion time when
	// empty.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// Candidate is one scored entity produced during resolution. Candidates are
// derived per query and never stored.
type Candidate struct {
	// EntityID is the candidate entity.
	EntityID string `json:"entity_id"`

	// Alias is the surface form whose match produced this candidate.
	// Useful for explaining why an entity was surfaced.
	Alias string `json:"alias"`

	// AliasScore is the similarity of the matched alias to the mention,
	// 1/(1+distance) over cosine distance, in (0, 1].
	AliasScore float64 `json:"alias_score"`

	// Prior is the alias's prior probability for this entity.
	Prior float64 `json:"prior"`

	// CombinedScore is AliasScore * Prior, the ranking key.
	CombinedScore float64 `json:"combined_score"`
}

// LinkResult is the outcome of resolving a single mention.
type LinkResult struct {
	// Mention is the surface text that was resolved.
	Mention string `json:"mention"`

	// KBID is the chosen entity id, or NIL when no candidate cleared the
	// acceptance threshold.
	KBID string `json:"kb_id"`

	// Candidates is the full ranked candidate list (possibly empty),
	// returned even on a NIL link for downstream inspection.
	Candidates []Candidate `json:"candidates"`
}

// Linked reports whether the result carries an actual entity link.
func (r *LinkResult) Linked() bool {
	return r.KBID != NIL && r.KBID != ""
}
