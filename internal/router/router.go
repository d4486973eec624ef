// Package router validates enriched transactions against the merchant
// category reference table and splits the batch into routing partitions.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/refdata"
)

// Router holds the category snapshot for one run. The snapshot is loaded once
// and read-only afterwards, so Route is safe for concurrent use.
type Router struct {
	categories map[string]domain.MerchantCategory
}

// New loads the category reference table through the provider (with the
// refdata retry budget) and builds the lookup snapshot.
func New(ctx context.Context, provider refdata.CategoryProvider) (*Router, error) {
	rows, err := refdata.WithRetry(ctx, "merchant categories", provider.Categories)
	if err != nil {
		return nil, fmt.Errorf("router.New: %w", err)
	}

	r := &Router{categories: make(map[string]domain.MerchantCategory, len(rows))}
	for _, row := range rows {
		r.categories[normalizeCode(row.Code)] = row
	}
	return r, nil
}

// Route assigns exactly one RoutingOutcome to an enriched transaction.
// A lookup miss or a restricted category quarantines the record regardless of
// its value or international flags: integrity checks dominate business
// classification.
func (r *Router) Route(tx domain.Transaction) domain.Transaction {
	cat, ok := r.categories[normalizeCode(tx.MerchantCategoryCode)]
	if !ok || cat.Restricted {
		tx.Outcome = domain.RoutingQuarantine
		return tx
	}

	tx.CategoryDescription = cat.Description
	tx.CategoryRiskLevel = cat.RiskLevel

	switch {
	case tx.IsHighValue:
		tx.Outcome = domain.RoutingHighValue
	case tx.IsInternational:
		tx.Outcome = domain.RoutingInternational
	default:
		tx.Outcome = domain.RoutingStandard
	}
	return tx
}

// Delta is the counter contribution of one routed batch. Counters are applied
// per batch, not per record, to keep the hot path free of shared state.
type Delta struct {
	Processed   int
	Quarantined int
}

// RouteBatch routes every transaction and returns the batch counter delta.
func (r *Router) RouteBatch(txs []domain.Transaction) ([]domain.Transaction, Delta) {
	routed := make([]domain.Transaction, 0, len(txs))
	var d Delta
	for _, tx := range txs {
		tx = r.Route(tx)
		if tx.Outcome == domain.RoutingQuarantine {
			d.Quarantined++
		} else {
			d.Processed++
		}
		routed = append(routed, tx)
	}
	return routed, d
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
