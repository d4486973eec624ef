package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoutingOutcome is the single partition a transaction is assigned to by the
// router. Every transaction ends up in exactly one outcome; Quarantine is
// terminal and excludes the record from the warehouse load.
type RoutingOutcome string

const (
	RoutingUnassigned    RoutingOutcome = ""
	RoutingStandard      RoutingOutcome = "STANDARD"
	RoutingHighValue     RoutingOutcome = "HIGH_VALUE"
	RoutingInternational RoutingOutcome = "INTERNATIONAL"
	RoutingQuarantine    RoutingOutcome = "QUARANTINE"
)

// Transaction is one card transaction for a processing date. The source
// reader fills the raw fields; enrichment populates the derived ones. After
// routing the record is never mutated.
type Transaction struct {
	ID         string
	CardNumber string
	CustomerID string

	Amount    decimal.Decimal // fixed-point, 4 decimal places
	Currency  string
	Timestamp time.Time

	MerchantID           string
	MerchantName         string
	MerchantCategoryCode string
	MerchantCountry      string

	AuthorizationCode string
	ResponseCode      string
	Channel           string

	BatchID string

	// Derived by enrichment.
	MaskedCardNumber string
	BIN              string
	DateKey          int
	IsHighValue      bool
	IsInternational  bool

	// Assigned by the router.
	Outcome             RoutingOutcome
	CategoryDescription string
	CategoryRiskLevel   string
}

// MerchantCategory is one entry of the merchant category reference table,
// loaded once per run and used as a read-only lookup keyed by code.
type MerchantCategory struct {
	Code        string
	Description string
	RiskLevel   string
	Restricted  bool
}
