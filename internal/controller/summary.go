package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/sink"
)

// stageOrder fixes the rendering order; StageDurations is a map.
var stageOrder = []domain.Stage{
	domain.StageExtracting,
	domain.StageFraudDetecting,
	domain.StageComplianceChecking,
	domain.StageFinalizing,
}

// renderSummary formats the human-readable run report printed at the end of
// every run, successful or not.
func renderSummary(exec *domain.ExecutionContext, reports []sink.Report, alerts []domain.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "batch run %s for %s: %s\n", exec.ExecutionID, exec.ProcessingDate, exec.Status)
	fmt.Fprintf(&b, "  processed=%d failed=%d fraud_alerts=%d compliance_alerts=%d\n",
		exec.Counters.Processed, exec.Counters.Failed,
		exec.Counters.FraudAlerts, exec.Counters.ComplianceAlerts)

	if !exec.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  duration=%s\n", exec.FinishedAt.Sub(exec.StartedAt).Round(time.Millisecond))
	}
	for _, stage := range stageOrder {
		if d, ok := exec.StageDurations[stage]; ok {
			fmt.Fprintf(&b, "  stage %-20s %s\n", stage, d.Round(time.Millisecond))
		}
	}

	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(&b, "  sink %-12s FAILED (%d written, %d failed): %v\n", r.Sink, r.Written, r.Failed, r.Err)
		} else {
			fmt.Fprintf(&b, "  sink %-12s ok (%d written)\n", r.Sink, r.Written)
		}
	}

	byType := make(map[domain.AlertType]int)
	for _, a := range alerts {
		byType[a.Type]++
	}
	for _, t := range []domain.AlertType{
		domain.AlertMLScore, domain.AlertVelocity, domain.AlertGeoAnomaly,
		domain.AlertOFACMatch, domain.AlertAMLStructuring,
	} {
		if n := byType[t]; n > 0 {
			fmt.Fprintf(&b, "  alerts %-16s %d\n", t, n)
		}
	}

	return b.String()
}
