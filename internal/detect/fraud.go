package detect

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/scorer"
)

const (
	velocityRiskScore   = 0.85
	geoAnomalyRiskScore = 0.95
)

// mlScoreRule delegates every transaction to the external scorer and flags
// those at or above the threshold. A scorer failure aborts the rule; alerts
// raised before the failure are returned alongside the error so the stage can
// keep them.
func mlScoreRule(ctx context.Context, s scorer.Scorer, threshold float64, executionID string, batch []domain.Transaction) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for _, tx := range batch {
		score, err := s.Score(ctx, tx)
		if err != nil {
			return alerts, fmt.Errorf("ml score rule: %w", err)
		}
		if score >= threshold {
			alerts = append(alerts, newAlert(executionID, domain.AlertMLScore, domain.CategoryFraud, tx.CardNumber,
				[]string{tx.ID}, score, map[string]string{
					"score":     formatFloat(score),
					"threshold": formatFloat(threshold),
					"merchant":  tx.MerchantName,
				}))
		}
	}
	return alerts, nil
}

// velocityRule flags any card with minCount or more transactions strictly
// inside one sliding window. Two pointers over the time-sorted per-card
// sequence; the left pointer advances until the span fits the window, and the
// first qualifying window raises the card's single alert for the run.
func velocityRule(executionID string, arena *cardArena, window time.Duration, minCount int) []domain.Alert {
	var alerts []domain.Alert
	arena.each(func(card string, txs []domain.Transaction) {
		if len(txs) < minCount {
			return
		}
		i := 0
		for j := range txs {
			for txs[j].Timestamp.Sub(txs[i].Timestamp) >= window {
				i++
			}
			if j-i+1 >= minCount {
				ids := make([]string, 0, j-i+1)
				for k := i; k <= j; k++ {
					ids = append(ids, txs[k].ID)
				}
				alerts = append(alerts, newAlert(executionID, domain.AlertVelocity, domain.CategoryFraud, card,
					ids, velocityRiskScore, map[string]string{
						"count":        strconv.Itoa(len(ids)),
						"window_start": txs[i].Timestamp.UTC().Format(time.RFC3339),
						"window_end":   txs[j].Timestamp.UTC().Format(time.RFC3339),
					}))
				// One alert per card per run.
				return
			}
		}
	})
	return alerts
}

// geoAnomalyRule compares adjacent transaction pairs per card: different
// merchant countries within the travel window is impossible consecutive
// travel. Only adjacent pairs are compared, not all pairs.
func geoAnomalyRule(executionID string, arena *cardArena, window time.Duration) []domain.Alert {
	var alerts []domain.Alert
	arena.each(func(card string, txs []domain.Transaction) {
		for i := 1; i < len(txs); i++ {
			prev, curr := txs[i-1], txs[i]
			if prev.MerchantCountry == curr.MerchantCountry {
				continue
			}
			delta := curr.Timestamp.Sub(prev.Timestamp)
			if delta <= window {
				alerts = append(alerts, newAlert(executionID, domain.AlertGeoAnomaly, domain.CategoryFraud, card,
					[]string{prev.ID, curr.ID}, geoAnomalyRiskScore, map[string]string{
						"from_country":  prev.MerchantCountry,
						"to_country":    curr.MerchantCountry,
						"delta_minutes": formatFloat(delta.Minutes()),
					}))
			}
		}
	})
	return alerts
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 4, 64), "0"), ".")
}
