// Package detect implements the windowed rule-evaluation engine: fraud rules
// (ML score, velocity, geo-anomaly) and compliance rules (OFAC screening,
// AML structuring) over the full non-quarantined batch of one processing
// date. Rules are pure functions of batch content, so reruns over identical
// input produce identical alert sets.
package detect

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/refdata"
	"github.com/avolkov/cardbatch/internal/scorer"
)

// Params fix the rule thresholds for one run.
type Params struct {
	ProcessingDate      civil.Date
	FraudScoreThreshold float64
	DuplicateWindow     time.Duration
	VelocityMinCount    int
	GeoAnomalyWindow    time.Duration
	OFACMatchThreshold  float64
	StructuringWindow   int // days
	StructuringMinSize  int
	StructuringLow      decimal.Decimal
	StructuringHigh     decimal.Decimal
}

// Engine evaluates the detection rules over a read-only batch snapshot.
type Engine struct {
	params    Params
	scorer    scorer.Scorer
	sanctions refdata.SanctionsProvider
}

// NewEngine wires the engine to its external collaborators.
func NewEngine(params Params, s scorer.Scorer, sanctions refdata.SanctionsProvider) *Engine {
	return &Engine{params: params, scorer: s, sanctions: sanctions}
}

type ruleResult struct {
	alerts []domain.Alert
	err    error
}

// RunFraud evaluates ML score, velocity and geo-anomaly concurrently over the
// same untouched batch; the rules are independent, not pipelined. Per-rule
// alert slices are merged in fixed rule order so the combined set is
// deterministic. A scorer failure does not cancel the other rules: their
// alerts are still returned, alongside the stage-fatal error.
func (e *Engine) RunFraud(ctx context.Context, executionID string, batch []domain.Transaction) ([]domain.Alert, error) {
	arena := buildArena(batch)

	mlCh := make(chan ruleResult, 1)
	velCh := make(chan ruleResult, 1)
	geoCh := make(chan ruleResult, 1)

	go func() {
		alerts, err := mlScoreRule(ctx, e.scorer, e.params.FraudScoreThreshold, executionID, batch)
		mlCh <- ruleResult{alerts, err}
	}()
	go func() {
		velCh <- ruleResult{velocityRule(executionID, arena, e.params.DuplicateWindow, e.params.VelocityMinCount), nil}
	}()
	go func() {
		geoCh <- ruleResult{geoAnomalyRule(executionID, arena, e.params.GeoAnomalyWindow), nil}
	}()

	ml, vel, geo := <-mlCh, <-velCh, <-geoCh

	alerts := make([]domain.Alert, 0, len(ml.alerts)+len(vel.alerts)+len(geo.alerts))
	alerts = append(alerts, ml.alerts...)
	alerts = append(alerts, vel.alerts...)
	alerts = append(alerts, geo.alerts...)
	return alerts, ml.err
}

// RunCompliance loads the sanctions snapshot (bounded retries), then runs
// OFAC screening and AML structuring concurrently. A provider failure is a
// stage failure before any rule runs.
func (e *Engine) RunCompliance(ctx context.Context, executionID string, batch []domain.Transaction) ([]domain.Alert, error) {
	names, err := refdata.WithRetry(ctx, "sanctions names", e.sanctions.Names)
	if err != nil {
		return nil, err
	}
	countries, err := refdata.WithRetry(ctx, "sanctioned countries", e.sanctions.SanctionedCountries)
	if err != nil {
		return nil, err
	}
	countrySet := make(map[string]bool, len(countries))
	for _, c := range countries {
		countrySet[c] = true
	}

	arena := buildArena(batch)
	windowEnd := e.params.ProcessingDate.In(time.UTC).Add(24 * time.Hour)

	ofacCh := make(chan ruleResult, 1)
	amlCh := make(chan ruleResult, 1)

	go func() {
		ofacCh <- ruleResult{ofacRule(executionID, batch, ofacParams{
			names:     names,
			countries: countrySet,
			threshold: e.params.OFACMatchThreshold,
		}), nil}
	}()
	go func() {
		amlCh <- ruleResult{structuringRule(executionID, arena, structuringParams{
			windowEnd:  windowEnd,
			windowDays: e.params.StructuringWindow,
			minCount:   e.params.StructuringMinSize,
			low:        e.params.StructuringLow,
			high:       e.params.StructuringHigh,
		}), nil}
	}()

	ofac, aml := <-ofacCh, <-amlCh

	alerts := make([]domain.Alert, 0, len(ofac.alerts)+len(aml.alerts))
	alerts = append(alerts, ofac.alerts...)
	alerts = append(alerts, aml.alerts...)
	return alerts, nil
}

// newAlert fills the common alert fields. Fraud alerts carry a numeric risk
// score; compliance rules add risk level and review flags on top.
func newAlert(executionID string, typ domain.AlertType, cat domain.AlertCategory, card string, txIDs []string, risk float64, evidence map[string]string) domain.Alert {
	return domain.Alert{
		AlertID:        uuid.NewString(),
		ExecutionID:    executionID,
		Type:           typ,
		Category:       cat,
		CardNumber:     card,
		TransactionIDs: txIDs,
		RiskScore:      risk,
		DetectedAt:     time.Now().UTC(),
		Evidence:       evidence,
	}
}
