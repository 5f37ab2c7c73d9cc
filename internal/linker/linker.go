// Package linker provides the pipeline-facing resolver: it consumes a
// mention string, queries the knowledge base for scored candidates and
// picks the best entity id, or the NIL sentinel when nothing clears the
// acceptance threshold.
package linker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/scrypster/entitylink/internal/kb"
	"github.com/scrypster/entitylink/pkg/types"
)

// ErrUnboundLinker indicates Resolve was called before SetKB.
var ErrUnboundLinker = errors.New("linker has no knowledge base bound")

// DefaultK is the candidate count requested from the knowledge base when
// the config leaves K unset.
const DefaultK = 10

// Config tunes resolution.
type Config struct {
	// K is the number of alias matches (and the candidate list bound)
	// per resolve. Default: DefaultK.
	K int

	// AcceptanceThreshold is the minimum combined score of the top
	// candidate for a link to be accepted. A top score below it yields
	// the NIL sentinel. 0 accepts any non-empty candidate list.
	AcceptanceThreshold float64
}

// Linker resolves mentions against a bound knowledge base. It starts
// unbound; SetKB performs the one-way transition to bound. Beyond the
// knowledge-base reference and its config the linker holds no mutable
// state, so a bound linker is safe to share across concurrent readers.
type Linker struct {
	cfg Config

	mu sync.RWMutex
	kb *kb.KnowledgeBase
}

// New creates an unbound linker.
func New(cfg Config) *Linker {
	if cfg.K <= 0 {
		cfg.K = DefaultK
	}
	return &Linker{cfg: cfg}
}

// SetKB binds a knowledge base. Rebinding replaces the previous reference;
// there is no merge and no way back to the unbound state.
func (l *Linker) SetKB(knowledgeBase *kb.KnowledgeBase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kb = knowledgeBase
}

// Resolve links a single mention. The result carries the chosen entity id
// (types.NIL when no candidate clears the acceptance threshold) and the
// full ranked candidate list, which is returned even on a NIL link so
// callers can inspect why nothing matched. The operation is read-only and
// deterministic for an unmodified knowledge base.
func (l *Linker) Resolve(ctx context.Context, mention string) (*types.LinkResult, error) {
	l.mu.RLock()
	knowledgeBase := l.kb
	l.mu.RUnlock()

	if knowledgeBase == nil {
		return nil, fmt.Errorf("resolve %q: %w", mention, ErrUnboundLinker)
	}

	candidates, err := knowledgeBase.CandidatesFor(ctx, mention, l.cfg.K)
	if err != nil {
		return nil, err
	}

	result := &types.LinkResult{
		Mention:    mention,
		KBID:       types.NIL,
		Candidates: candidates,
	}
	if len(candidates) > 0 && candidates[0].CombinedScore >= l.cfg.AcceptanceThreshold {
		result.KBID = candidates[0].EntityID
	}
	return result, nil
}

// ResolveBatch links a batch of mentions, one result per mention in input
// order. Mentions are resolved sequentially; a failure aborts the batch.
func (l *Linker) ResolveBatch(ctx context.Context, mentions []string) ([]*types.LinkResult, error) {
	results := make([]*types.LinkResult, 0, len(mentions))
	for _, mention := range mentions {
		result, err := l.Resolve(ctx, mention)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
