package detect

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/cardbatch/internal/domain"
)

// ofacParams are the screening inputs, snapshotted once per run.
type ofacParams struct {
	names     []string
	countries map[string]bool
	threshold float64
}

// ofacRule screens transactions that touch an international merchant (the
// international flag, or a merchant country on the sanctioned list). A fuzzy
// name match at or above the threshold, or a sanctioned merchant country,
// raises a requires-review sanctions alert. Per-record rule, so batch order
// does not affect the result set.
func ofacRule(executionID string, batch []domain.Transaction, p ofacParams) []domain.Alert {
	var alerts []domain.Alert
	for _, tx := range batch {
		countrySanctioned := p.countries[tx.MerchantCountry]
		if !tx.IsInternational && !countrySanctioned {
			continue
		}

		entity, score := BestMatch(tx.MerchantName, p.names)
		nameMatched := score >= p.threshold
		if !nameMatched && !countrySanctioned {
			continue
		}

		risk := score
		evidence := map[string]string{
			"merchant_name": tx.MerchantName,
			"country":       tx.MerchantCountry,
		}
		if nameMatched {
			evidence["matched_entity"] = entity
			evidence["match_score"] = formatFloat(score)
		}
		if countrySanctioned {
			evidence["sanctioned_country"] = tx.MerchantCountry
			risk = 1.0
		}

		a := newAlert(executionID, domain.AlertOFACMatch, domain.CategorySanctions, tx.CardNumber,
			[]string{tx.ID}, risk, evidence)
		a.RiskLevel = domain.RiskLevelHigh
		a.RequiresReview = true
		alerts = append(alerts, a)
	}
	return alerts
}

// structuringParams bound the AML rule for one run.
type structuringParams struct {
	windowEnd  time.Time // end of the processing date, UTC
	windowDays int
	minCount   int
	low, high  decimal.Decimal // inclusive amount band
}

// structuringRule flags cards with minCount or more transactions inside the
// reporting-threshold band within the rolling window ending at the processing
// date. The window is computed per card independently and a card raises at
// most one alert per run, however many qualifying subsets overlap.
func structuringRule(executionID string, arena *cardArena, p structuringParams) []domain.Alert {
	windowStart := p.windowEnd.Add(-time.Duration(p.windowDays) * 24 * time.Hour)

	var alerts []domain.Alert
	arena.each(func(card string, txs []domain.Transaction) {
		var ids []string
		total := decimal.Zero
		for _, tx := range txs {
			ts := tx.Timestamp.UTC()
			if !ts.After(windowStart) || ts.After(p.windowEnd) {
				continue
			}
			if tx.Amount.LessThan(p.low) || tx.Amount.GreaterThan(p.high) {
				continue
			}
			ids = append(ids, tx.ID)
			total = total.Add(tx.Amount)
		}
		if len(ids) < p.minCount {
			return
		}

		avg := total.Div(decimal.NewFromInt(int64(len(ids)))).Round(4)
		a := newAlert(executionID, domain.AlertAMLStructuring, domain.CategoryAML, card,
			ids, 1.0, map[string]string{
				"count":          strconv.Itoa(len(ids)),
				"average_amount": avg.StringFixed(4),
				"window_start":   windowStart.Format(time.RFC3339),
				"window_end":     p.windowEnd.Format(time.RFC3339),
			})
		a.RiskLevel = domain.RiskLevelHigh
		a.RequiresReview = true
		alerts = append(alerts, a)
	})
	return alerts
}
