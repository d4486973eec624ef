// Package enrich derives the computed transaction fields. Everything here is
// a pure function of the input record and the run parameters; malformed
// records are reported, never repaired.
package enrich

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avolkov/cardbatch/internal/domain"
)

const (
	minCardDigits = 8
	binDigits     = 6
	maskRun       = "********"
)

// Params are the run-level inputs to enrichment, fixed for the whole batch.
type Params struct {
	HighValueThreshold decimal.Decimal
	HomeCountry        string
}

// Enrich returns a copy of tx with the derived fields populated. All date
// derivation uses UTC regardless of the transaction's wall-clock zone.
// A card number with fewer than 8 digits fails with domain.ErrMalformedRecord
// and the record must be quarantined without entering downstream stages.
func Enrich(tx domain.Transaction, p Params) (domain.Transaction, error) {
	card := strings.ReplaceAll(strings.TrimSpace(tx.CardNumber), " ", "")
	if len(card) < minCardDigits {
		return tx, fmt.Errorf("%w: card number has %d digits, need at least %d (transaction %s)",
			domain.ErrMalformedRecord, len(card), minCardDigits, tx.ID)
	}

	tx.MaskedCardNumber = card[:4] + maskRun + card[len(card)-4:]
	tx.BIN = card[:binDigits]

	ts := tx.Timestamp.UTC()
	tx.DateKey = ts.Year()*10000 + int(ts.Month())*100 + ts.Day()

	tx.IsHighValue = tx.Amount.GreaterThanOrEqual(p.HighValueThreshold)
	tx.IsInternational = tx.MerchantCountry != p.HomeCountry

	return tx, nil
}
