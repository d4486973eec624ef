package enrich

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/cardbatch/internal/domain"
)

func params() Params {
	return Params{
		HighValueThreshold: decimal.RequireFromString("10000.00"),
		HomeCountry:        "US",
	}
}

func TestEnrich_DerivedFields(t *testing.T) {
	tx := domain.Transaction{
		ID:              "tx-1",
		CardNumber:      "4532015112830366",
		Amount:          decimal.RequireFromString("125.5000"),
		MerchantCountry: "US",
		Timestamp:       time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC),
	}

	got, err := Enrich(tx, params())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if got.MaskedCardNumber != "4532********0366" {
		t.Errorf("MaskedCardNumber = %q", got.MaskedCardNumber)
	}
	if got.BIN != "453201" {
		t.Errorf("BIN = %q, want 453201", got.BIN)
	}
	if got.DateKey != 20260828 {
		t.Errorf("DateKey = %d, want 20260828", got.DateKey)
	}
	if got.IsHighValue {
		t.Error("IsHighValue = true for a 125.50 transaction")
	}
	if got.IsInternational {
		t.Error("IsInternational = true for a home-country merchant")
	}
}

func TestEnrich_DateKeyUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	tx := domain.Transaction{
		CardNumber: "4532015112830366",
		Amount:     decimal.New(10, 0),
		Timestamp:  time.Date(2026, 8, 28, 23, 30, 0, 0, loc),
	}

	got, err := Enrich(tx, params())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if got.DateKey != 20260829 {
		t.Errorf("DateKey = %d, want 20260829 (UTC derivation)", got.DateKey)
	}
}

func TestEnrich_Flags(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		country       string
		highValue     bool
		international bool
	}{
		{"at threshold", "10000.00", "US", true, false},
		{"above threshold", "10000.0001", "US", true, false},
		{"below threshold", "9999.9999", "US", false, false},
		{"foreign merchant", "50.00", "FR", false, true},
		{"high value and foreign", "25000.00", "JP", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := domain.Transaction{
				CardNumber:      "4532015112830366",
				Amount:          decimal.RequireFromString(tt.amount),
				MerchantCountry: tt.country,
				Timestamp:       time.Now(),
			}
			got, err := Enrich(tx, params())
			if err != nil {
				t.Fatalf("Enrich failed: %v", err)
			}
			if got.IsHighValue != tt.highValue {
				t.Errorf("IsHighValue = %v, want %v", got.IsHighValue, tt.highValue)
			}
			if got.IsInternational != tt.international {
				t.Errorf("IsInternational = %v, want %v", got.IsInternational, tt.international)
			}
		})
	}
}

func TestEnrich_MalformedCard(t *testing.T) {
	for _, card := range []string{"", "1234", "1234567"} {
		tx := domain.Transaction{ID: "bad", CardNumber: card, Timestamp: time.Now()}
		_, err := Enrich(tx, params())
		if !errors.Is(err, domain.ErrMalformedRecord) {
			t.Errorf("card %q: err = %v, want ErrMalformedRecord", card, err)
		}
	}
}

func TestEnrich_ShortCardStillMasksAndBins(t *testing.T) {
	tx := domain.Transaction{CardNumber: "12345678", Amount: decimal.New(1, 0), Timestamp: time.Now()}
	got, err := Enrich(tx, params())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if got.MaskedCardNumber != "1234********5678" {
		t.Errorf("MaskedCardNumber = %q", got.MaskedCardNumber)
	}
	if got.BIN != "123456" {
		t.Errorf("BIN = %q", got.BIN)
	}
}
