// Package notify carries the structured run events to the logging and
// notification collaborators. Events are explicit calls at fixed points of
// the controller's state machine, not an implicit event bus.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Event is the structured payload sent at run start, per-stage completion,
// and run completion or failure.
type Event struct {
	ExecutionID    string
	ProcessingDate string
	Stage          domain.Stage
	Status         domain.RunStatus
	Counters       domain.Counters
	Error          error
}

// Notifier receives run lifecycle events. Implementations must not block the
// pipeline; failures are logged and swallowed by the caller.
type Notifier interface {
	RunStarted(ctx context.Context, e Event)
	StageCompleted(ctx context.Context, e Event)
	RunCompleted(ctx context.Context, e Event)
	RunFailed(ctx context.Context, e Event)
}

// LogNotifier writes every event as a structured log line.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n *LogNotifier) RunStarted(ctx context.Context, e Event) {
	n.event(e).Msg("run started")
}

func (n *LogNotifier) StageCompleted(ctx context.Context, e Event) {
	n.event(e).Msg("stage completed")
}

func (n *LogNotifier) RunCompleted(ctx context.Context, e Event) {
	n.event(e).Msg("run completed")
}

func (n *LogNotifier) RunFailed(ctx context.Context, e Event) {
	ev := n.event(e)
	if e.Error != nil {
		ev = ev.Err(e.Error)
	}
	ev.Msg("run failed")
}

func (n *LogNotifier) event(e Event) *zerolog.Event {
	return n.Log.Info().
		Str("execution_id", e.ExecutionID).
		Str("processing_date", e.ProcessingDate).
		Str("stage", string(e.Stage)).
		Str("status", string(e.Status)).
		Int("processed", e.Counters.Processed).
		Int("failed", e.Counters.Failed).
		Int("fraud_alerts", e.Counters.FraudAlerts).
		Int("compliance_alerts", e.Counters.ComplianceAlerts)
}

// Noop discards all events; used in tests.
type Noop struct{}

func (Noop) RunStarted(ctx context.Context, e Event)     {}
func (Noop) StageCompleted(ctx context.Context, e Event) {}
func (Noop) RunCompleted(ctx context.Context, e Event)   {}
func (Noop) RunFailed(ctx context.Context, e Event)      {}

// ReviewBoard receives requires-review alerts for analyst triage.
type ReviewBoard interface {
	PushAlerts(ctx context.Context, alerts []domain.Alert) error
}

// NoopBoard discards alerts; used when no board is configured.
type NoopBoard struct{}

func (NoopBoard) PushAlerts(ctx context.Context, alerts []domain.Alert) error { return nil }
