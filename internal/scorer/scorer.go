// Package scorer defines the external fraud scorer collaborator. Model
// training and hosting live elsewhere; this package only adapts remote (or
// fixed) scores into the detection engine.
package scorer

import (
	"context"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Scorer returns a fraud probability in [0,1] for one transaction.
// Implementations wrap transport failures as domain.ErrScorerUnavailable,
// which the caller treats as stage-fatal.
type Scorer interface {
	Score(ctx context.Context, tx domain.Transaction) (float64, error)
}

// Static returns a fixed score, or a per-transaction override when one is
// registered. Used for offline runs and tests.
type Static struct {
	Default float64
	Scores  map[string]float64 // keyed by transaction id
}

func (s *Static) Score(ctx context.Context, tx domain.Transaction) (float64, error) {
	if v, ok := s.Scores[tx.ID]; ok {
		return v, nil
	}
	return s.Default, nil
}
