package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/refdata"
	"github.com/avolkov/cardbatch/internal/scorer"
)

var baseTime = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func testParams() Params {
	return Params{
		ProcessingDate:      civil.Date{Year: 2026, Month: 8, Day: 28},
		FraudScoreThreshold: 0.75,
		DuplicateWindow:     5 * time.Minute,
		VelocityMinCount:    5,
		GeoAnomalyWindow:    120 * time.Minute,
		OFACMatchThreshold:  0.85,
		StructuringWindow:   7,
		StructuringMinSize:  3,
		StructuringLow:      decimal.RequireFromString("9000.00"),
		StructuringHigh:     decimal.RequireFromString("9999.99"),
	}
}

func cardTx(id, card, country string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:              id,
		CardNumber:      card,
		MerchantCountry: country,
		Amount:          decimal.New(100, 0),
		Timestamp:       at,
	}
}

func alertsOfType(alerts []domain.Alert, typ domain.AlertType) []domain.Alert {
	var out []domain.Alert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestVelocityRule_FiveInFiveMinutes(t *testing.T) {
	var batch []domain.Transaction
	for i := 0; i < 5; i++ {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(i)*time.Minute)))
	}

	alerts := velocityRule("exec", buildArena(batch), 5*time.Minute, 5)
	if len(alerts) != 1 {
		t.Fatalf("got %d velocity alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.CardNumber != "card-1" || a.RiskScore != 0.85 {
		t.Errorf("alert = %+v", a)
	}
	if len(a.TransactionIDs) != 5 {
		t.Errorf("evidence window has %d transactions, want 5", len(a.TransactionIDs))
	}
}

func TestVelocityRule_SpreadOverSixMinutes(t *testing.T) {
	var batch []domain.Transaction
	for i := 0; i < 5; i++ {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(i)*90*time.Second)))
	}

	alerts := velocityRule("exec", buildArena(batch), 5*time.Minute, 5)
	if len(alerts) != 0 {
		t.Fatalf("got %d velocity alerts, want 0 (6 minute spread)", len(alerts))
	}
}

func TestVelocityRule_OneAlertPerCard(t *testing.T) {
	var batch []domain.Transaction
	// Ten rapid transactions yield many qualifying windows but one alert.
	for i := 0; i < 10; i++ {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(i)*30*time.Second)))
	}
	// Second card also qualifies.
	for i := 0; i < 5; i++ {
		batch = append(batch, cardTx(string(rune('p'+i)), "card-2", "US", baseTime.Add(time.Duration(i)*time.Minute)))
	}

	alerts := velocityRule("exec", buildArena(batch), 5*time.Minute, 5)
	if len(alerts) != 2 {
		t.Fatalf("got %d velocity alerts, want 2 (one per card)", len(alerts))
	}
}

func TestVelocityRule_UnorderedInput(t *testing.T) {
	// The batch arrives unordered; the arena sorts per card.
	offsets := []int{4, 0, 3, 1, 2}
	var batch []domain.Transaction
	for i, m := range offsets {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(m)*time.Minute)))
	}

	alerts := velocityRule("exec", buildArena(batch), 5*time.Minute, 5)
	if len(alerts) != 1 {
		t.Fatalf("got %d velocity alerts, want 1", len(alerts))
	}
}

func TestGeoAnomalyRule(t *testing.T) {
	tests := []struct {
		name  string
		delta time.Duration
		want  int
	}{
		{"ninety minutes apart", 90 * time.Minute, 1},
		{"exactly at window", 120 * time.Minute, 1},
		{"one hundred fifty minutes apart", 150 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := []domain.Transaction{
				cardTx("a", "card-1", "US", baseTime),
				cardTx("b", "card-1", "FR", baseTime.Add(tt.delta)),
			}
			alerts := geoAnomalyRule("exec", buildArena(batch), 120*time.Minute)
			if len(alerts) != tt.want {
				t.Fatalf("got %d geo alerts, want %d", len(alerts), tt.want)
			}
			if tt.want == 1 {
				a := alerts[0]
				if a.RiskScore != 0.95 {
					t.Errorf("RiskScore = %v, want 0.95", a.RiskScore)
				}
				if a.Evidence["from_country"] != "US" || a.Evidence["to_country"] != "FR" {
					t.Errorf("evidence = %v", a.Evidence)
				}
			}
		})
	}
}

func TestGeoAnomalyRule_AdjacentPairsOnly(t *testing.T) {
	// US -> US -> FR: the US/FR pair spans 60m but only adjacent pairs are
	// compared, and the adjacent US->FR leg is 30m, which still fires once.
	// US at t and FR at t+60m are NOT compared directly.
	batch := []domain.Transaction{
		cardTx("a", "card-1", "US", baseTime),
		cardTx("b", "card-1", "US", baseTime.Add(30*time.Minute)),
		cardTx("c", "card-1", "FR", baseTime.Add(60*time.Minute)),
	}
	alerts := geoAnomalyRule("exec", buildArena(batch), 120*time.Minute)
	if len(alerts) != 1 {
		t.Fatalf("got %d geo alerts, want 1 (adjacent pair only)", len(alerts))
	}
	got := alerts[0].TransactionIDs
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("alert pair = %v, want [b c]", got)
	}
}

func TestGeoAnomalyRule_SameCountryNoAlert(t *testing.T) {
	batch := []domain.Transaction{
		cardTx("a", "card-1", "US", baseTime),
		cardTx("b", "card-1", "US", baseTime.Add(time.Minute)),
	}
	if alerts := geoAnomalyRule("exec", buildArena(batch), 120*time.Minute); len(alerts) != 0 {
		t.Fatalf("got %d geo alerts, want 0", len(alerts))
	}
}

func TestMLScoreRule_Threshold(t *testing.T) {
	batch := []domain.Transaction{
		cardTx("low", "card-1", "US", baseTime),
		cardTx("at", "card-2", "US", baseTime),
		cardTx("high", "card-3", "US", baseTime),
	}
	s := &scorer.Static{
		Default: 0.1,
		Scores:  map[string]float64{"at": 0.75, "high": 0.99},
	}

	alerts, err := mlScoreRule(context.Background(), s, 0.75, "exec", batch)
	if err != nil {
		t.Fatalf("mlScoreRule failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d ML alerts, want 2", len(alerts))
	}
	if alerts[0].TransactionIDs[0] != "at" || alerts[0].RiskScore != 0.75 {
		t.Errorf("first alert = %+v", alerts[0])
	}
	if alerts[1].TransactionIDs[0] != "high" || alerts[1].RiskScore != 0.99 {
		t.Errorf("second alert = %+v", alerts[1])
	}
}

type failingScorer struct{ after int }

func (f *failingScorer) Score(ctx context.Context, tx domain.Transaction) (float64, error) {
	if f.after <= 0 {
		return 0, domain.ErrScorerUnavailable
	}
	f.after--
	return 0.9, nil
}

func TestRunFraud_ScorerFailureKeepsOtherRules(t *testing.T) {
	var batch []domain.Transaction
	for i := 0; i < 5; i++ {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(i)*time.Minute)))
	}

	e := NewEngine(testParams(), &failingScorer{after: 2}, &refdata.StaticSanctions{})
	alerts, err := e.RunFraud(context.Background(), "exec", batch)
	if !errors.Is(err, domain.ErrScorerUnavailable) {
		t.Fatalf("err = %v, want ErrScorerUnavailable", err)
	}
	// Velocity still completed and its alert is kept; the two ML alerts
	// raised before the failure are kept too.
	if got := alertsOfType(alerts, domain.AlertVelocity); len(got) != 1 {
		t.Errorf("got %d velocity alerts despite scorer failure, want 1", len(got))
	}
	if got := alertsOfType(alerts, domain.AlertMLScore); len(got) != 2 {
		t.Errorf("got %d partial ML alerts, want 2", len(got))
	}
}

func TestRunFraud_Deterministic(t *testing.T) {
	var batch []domain.Transaction
	for i := 0; i < 6; i++ {
		batch = append(batch, cardTx(string(rune('a'+i)), "card-1", "US", baseTime.Add(time.Duration(i)*time.Minute)))
	}
	batch = append(batch,
		cardTx("x", "card-2", "US", baseTime),
		cardTx("y", "card-2", "DE", baseTime.Add(45*time.Minute)),
	)

	e := NewEngine(testParams(), &scorer.Static{Default: 0.9}, &refdata.StaticSanctions{})

	first, err := e.RunFraud(context.Background(), "exec", batch)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := e.RunFraud(context.Background(), "exec", batch)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("rerun produced %d alerts, first run %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Type != second[i].Type ||
			first[i].CardNumber != second[i].CardNumber ||
			first[i].RiskScore != second[i].RiskScore {
			t.Errorf("alert %d differs between reruns: %+v vs %+v", i, first[i], second[i])
		}
	}
}
