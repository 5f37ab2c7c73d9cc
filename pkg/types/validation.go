package types

import (
	"fmt"
)

// ProbabilityEpsilon is the floating-point slack allowed when checking that
// an alias's probability mass does not exceed 1.
const ProbabilityEpsilon = 1e-9

// InvalidAliasReason discriminates the ways an alias can fail validation.
type InvalidAliasReason string

const (
	// ReasonEmptyAlias: the alias surface form is empty.
	ReasonEmptyAlias InvalidAliasReason = "empty_alias"

	// ReasonNoEntities: the alias references no entities at all.
	ReasonNoEntities InvalidAliasReason = "no_entities"

	// ReasonLengthMismatch: entities and probabilities differ in length.
	ReasonLengthMismatch InvalidAliasReason = "length_mismatch"

	// ReasonProbabilityRange: a single prior falls outside [0, 1].
	ReasonProbabilityRange InvalidAliasReason = "probability_range"

	// ReasonProbabilityOverflow: the priors sum to more than 1.
	ReasonProbabilityOverflow InvalidAliasReason = "probability_overflow"

	// ReasonUnknownEntityRef: the alias references an entity id that is
	// not present in the entity store. Produced by the alias store, which
	// has access to the entity store; Validate alone cannot detect it.
	ReasonUnknownEntityRef InvalidAliasReason = "unknown_entity_ref"
)

// InvalidAliasError reports a malformed alias. The whole batch containing
// the alias is rejected; no rows from it are written.
type InvalidAliasError struct {
	// Alias is the surface form of the offending alias.
	Alias string

	// Reason discriminates the validation failure.
	Reason InvalidAliasReason

	// Detail carries human-readable specifics (counts, ids, sums).
	Detail string
}

func (e *InvalidAliasError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid alias %q: %s", e.Alias, e.Reason)
	}
	return fmt.Sprintf("invalid alias %q: %s: %s", e.Alias, e.Reason, e.Detail)
}

// Validate checks the alias's local invariants. Cross-store checks
// (unknown_entity_ref) are performed by the alias store at insertion time.
func (a *Alias) Validate() error {
	if a.Alias == "" {
		return &InvalidAliasError{Alias: a.Alias, Reason: ReasonEmptyAlias}
	}
	if len(a.Entities) == 0 {
		return &InvalidAliasError{Alias: a.Alias, Reason: ReasonNoEntities}
	}
	if len(a.Entities) != len(a.Probabilities) {
		return &InvalidAliasError{
			Alias:  a.Alias,
			Reason: ReasonLengthMismatch,
			Detail: fmt.Sprintf("%d entities, %d probabilities", len(a.Entities), len(a.Probabilities)),
		}
	}

	sum := 0.0
	for i, p := range a.Probabilities {
		if p < 0 || p > 1 {
			return &InvalidAliasError{
				Alias:  a.Alias,
				Reason: ReasonProbabilityRange,
				Detail: fmt.Sprintf("probability %g at index %d outside [0, 1]", p, i),
			}
		}
		sum += p
	}
	if sum > 1+ProbabilityEpsilon {
		return &InvalidAliasError{
			Alias:  a.Alias,
			Reason: ReasonProbabilityOverflow,
			Detail: fmt.Sprintf("probabilities sum to %g", sum),
		}
	}

	return nil
}
