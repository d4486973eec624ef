package detect

import (
	"sort"

	"github.com/avolkov/cardbatch/internal/domain"
)

// cardArena materializes the batch grouped by card identifier with each
// group sorted by timestamp. It is built once per run and shared read-only by
// every rule needing cross-record correlation (velocity, geo-anomaly,
// structuring), so the batch is never re-scanned per rule.
type cardArena struct {
	cards  []string // sorted for deterministic iteration
	byCard map[string][]domain.Transaction
}

func buildArena(batch []domain.Transaction) *cardArena {
	a := &cardArena{byCard: make(map[string][]domain.Transaction)}
	for _, tx := range batch {
		a.byCard[tx.CardNumber] = append(a.byCard[tx.CardNumber], tx)
	}
	for card, txs := range a.byCard {
		sort.Slice(txs, func(i, j int) bool {
			if txs[i].Timestamp.Equal(txs[j].Timestamp) {
				return txs[i].ID < txs[j].ID
			}
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		})
		a.cards = append(a.cards, card)
	}
	sort.Strings(a.cards)
	return a
}

// each visits every card group in deterministic (sorted card) order.
func (a *cardArena) each(fn func(card string, txs []domain.Transaction)) {
	for _, card := range a.cards {
		fn(card, a.byCard[card])
	}
}
