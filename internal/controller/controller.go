// Package controller orchestrates one batch run: stage sequencing,
// conditional stage enablement, counter aggregation, and completion or
// failure reporting. It is the only owner of the ExecutionContext.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/cardbatch/internal/config"
	"github.com/avolkov/cardbatch/internal/detect"
	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/enrich"
	"github.com/avolkov/cardbatch/internal/logger"
	"github.com/avolkov/cardbatch/internal/metrics"
	"github.com/avolkov/cardbatch/internal/notify"
	"github.com/avolkov/cardbatch/internal/refdata"
	"github.com/avolkov/cardbatch/internal/router"
	"github.com/avolkov/cardbatch/internal/sink"
	"github.com/avolkov/cardbatch/internal/source"
)

// Deps are the collaborators of one batch run.
type Deps struct {
	// ExecutionID preassigns the run id so sinks built ahead of the run can
	// stamp their writes with it. Empty means generate one.
	ExecutionID string

	Source     source.Reader
	Categories refdata.CategoryProvider
	Engine     *detect.Engine
	Fanout     *sink.Fanout
	Notifier   notify.Notifier
	Board      notify.ReviewBoard
}

// Controller runs the batch pipeline for a single processing date.
type Controller struct {
	cfg  *config.Config
	log  zerolog.Logger
	deps Deps
}

// New builds a controller. Board may be nil when no review board is
// configured.
func New(cfg *config.Config, log zerolog.Logger, deps Deps) *Controller {
	if deps.Board == nil {
		deps.Board = notify.NoopBoard{}
	}
	return &Controller{cfg: cfg, log: log, deps: deps}
}

// Result is the outcome of one run. Alerts gathered before a stage failure
// are kept, so a Failed result can still carry a partial alert set.
type Result struct {
	Execution *domain.ExecutionContext
	Alerts    []domain.Alert
	Reports   []sink.Report
	Summary   string

	validated []domain.Transaction
}

// Run executes the state machine
// Initializing -> Extracting -> FraudDetecting? -> ComplianceChecking? ->
// Finalizing -> {Completed | CompletedWithFailures | Failed}.
// Feature flags are read once at start; a stage-fatal error skips every
// remaining stage.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	executionID := c.deps.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}
	exec := domain.NewExecutionContext(executionID, c.cfg.Date, c.cfg.BatchSize, c.cfg.Flags())
	log := logger.WithRun(c.log, exec.ExecutionID, exec.ProcessingDate.String())
	result := &Result{Execution: exec}

	c.deps.Notifier.RunStarted(ctx, c.event(exec, domain.StageInitializing, nil))
	log.Info().
		Bool("fraud", exec.Flags.Fraud).
		Bool("compliance", exec.Flags.Compliance).
		Bool("archiving", exec.Flags.Archiving).
		Msg("starting batch run")

	err := c.runStage(ctx, exec, domain.StageExtracting, log, func() error {
		return c.extract(ctx, exec, log, result)
	})
	if err != nil {
		return c.fail(ctx, exec, result, err)
	}

	if exec.Flags.Fraud {
		err = c.runStage(ctx, exec, domain.StageFraudDetecting, log, func() error {
			alerts, ruleErr := c.deps.Engine.RunFraud(ctx, exec.ExecutionID, result.validated)
			exec.Counters.FraudAlerts += len(alerts)
			result.Alerts = append(result.Alerts, alerts...)
			countAlerts(alerts)
			return ruleErr
		})
		if err != nil {
			return c.fail(ctx, exec, result, err)
		}
	}

	if exec.Flags.Compliance {
		err = c.runStage(ctx, exec, domain.StageComplianceChecking, log, func() error {
			alerts, ruleErr := c.deps.Engine.RunCompliance(ctx, exec.ExecutionID, result.validated)
			exec.Counters.ComplianceAlerts += len(alerts)
			result.Alerts = append(result.Alerts, alerts...)
			countAlerts(alerts)
			return ruleErr
		})
		if err != nil {
			return c.fail(ctx, exec, result, err)
		}
	}

	_ = c.runStage(ctx, exec, domain.StageFinalizing, log, func() error {
		c.pushReviewAlerts(ctx, exec, log, result.Alerts)
		return nil
	})

	exec.FinishedAt = time.Now().UTC()
	if exec.Counters.Failed > 0 || exec.Degraded {
		exec.Status = domain.StatusCompletedWithFailures
	} else {
		exec.Status = domain.StatusCompleted
	}

	metrics.RunsFinished.WithLabelValues(string(exec.Status)).Inc()
	metrics.RunDuration.Observe(exec.FinishedAt.Sub(exec.StartedAt).Seconds())

	result.Summary = renderSummary(exec, result.Reports, result.Alerts)
	c.deps.Notifier.RunCompleted(ctx, c.event(exec, domain.StageFinalizing, nil))
	log.Info().Str("status", string(exec.Status)).Msg("batch run finished")
	return result, nil
}

// runStage times one stage and reports its completion; failure handling is
// left to the caller.
func (c *Controller) runStage(ctx context.Context, exec *domain.ExecutionContext, stage domain.Stage, log zerolog.Logger, fn func() error) error {
	exec.CurrentStage = stage
	started := time.Now()
	err := fn()
	exec.StageDurations[stage] = time.Since(started)

	if err != nil {
		return &domain.StageError{
			Stage:          stage,
			ExecutionID:    exec.ExecutionID,
			ProcessingDate: exec.ProcessingDate,
			Err:            err,
		}
	}

	c.deps.Notifier.StageCompleted(ctx, c.event(exec, stage, nil))
	log.Info().Str("stage", string(stage)).Dur("took", exec.StageDurations[stage]).Msg("stage completed")
	return nil
}

// extract reads the raw feed, enriches and routes every record, fans out the
// validated set, and marks warehouse-committed records processed.
func (c *Controller) extract(ctx context.Context, exec *domain.ExecutionContext, log zerolog.Logger, result *Result) error {
	raw, err := c.deps.Source.Fetch(ctx, exec.ProcessingDate, exec.BatchSize)
	if err != nil {
		return err
	}
	log.Info().Int("records", len(raw)).Msg("fetched unprocessed transactions")

	rt, err := router.New(ctx, c.deps.Categories)
	if err != nil {
		return err
	}

	params := enrich.Params{HighValueThreshold: c.cfg.HighValue, HomeCountry: c.cfg.HomeCountry}
	enriched := make([]domain.Transaction, 0, len(raw))
	malformed := 0
	for _, tx := range raw {
		etx, enrichErr := enrich.Enrich(tx, params)
		if enrichErr != nil {
			if !errors.Is(enrichErr, domain.ErrMalformedRecord) {
				return enrichErr
			}
			malformed++
			log.Warn().Str("transaction_id", tx.ID).Err(enrichErr).Msg("quarantining malformed record")
			continue
		}
		enriched = append(enriched, etx)
	}

	routed, delta := rt.RouteBatch(enriched)
	exec.Counters.Processed += delta.Processed
	exec.Counters.Failed += delta.Quarantined + malformed
	metrics.RecordsProcessed.Add(float64(delta.Processed))
	metrics.RecordsQuarantined.Add(float64(delta.Quarantined + malformed))

	validated := make([]domain.Transaction, 0, len(routed))
	for _, tx := range routed {
		if tx.Outcome != domain.RoutingQuarantine {
			validated = append(validated, tx)
		}
	}
	result.validated = validated

	reports := c.deps.Fanout.Write(ctx, validated)
	result.Reports = reports

	warehouseOK := false
	for _, r := range reports {
		if r.Err != nil {
			exec.Degraded = true
			metrics.SinkFailures.WithLabelValues(r.Sink).Inc()
			log.Error().Err(r.Err).Str("sink", r.Sink).Int("failed", r.Failed).Msg("sink write failed")
			continue
		}
		if r.Sink == "warehouse" {
			warehouseOK = true
		}
	}

	if warehouseOK && len(validated) > 0 {
		ids := make([]string, 0, len(validated))
		for _, tx := range validated {
			ids = append(ids, tx.ID)
		}
		if err := c.deps.Source.MarkProcessed(ctx, ids, exec.ExecutionID); err != nil {
			exec.Degraded = true
			log.Error().Err(err).Msg("marking records processed failed; rerun will re-read them")
		}
	}
	return nil
}

// pushReviewAlerts sends requires-review alerts to the review board. Board
// failures degrade the run but never fail it.
func (c *Controller) pushReviewAlerts(ctx context.Context, exec *domain.ExecutionContext, log zerolog.Logger, alerts []domain.Alert) {
	var review []domain.Alert
	for _, a := range alerts {
		if a.RequiresReview {
			review = append(review, a)
		}
	}
	if len(review) == 0 {
		return
	}
	if err := c.deps.Board.PushAlerts(ctx, review); err != nil {
		exec.Degraded = true
		log.Error().Err(err).Int("alerts", len(review)).Msg("review board push failed")
	}
}

func (c *Controller) fail(ctx context.Context, exec *domain.ExecutionContext, result *Result, err error) (*Result, error) {
	exec.Status = domain.StatusFailed
	exec.FinishedAt = time.Now().UTC()

	metrics.RunsFinished.WithLabelValues(string(exec.Status)).Inc()
	metrics.RunDuration.Observe(exec.FinishedAt.Sub(exec.StartedAt).Seconds())

	result.Summary = renderSummary(exec, result.Reports, result.Alerts)
	c.deps.Notifier.RunFailed(ctx, c.event(exec, exec.CurrentStage, err))
	return result, err
}

func (c *Controller) event(exec *domain.ExecutionContext, stage domain.Stage, err error) notify.Event {
	return notify.Event{
		ExecutionID:    exec.ExecutionID,
		ProcessingDate: exec.ProcessingDate.String(),
		Stage:          stage,
		Status:         exec.Status,
		Counters:       exec.Counters,
		Error:          err,
	}
}

func countAlerts(alerts []domain.Alert) {
	for _, a := range alerts {
		metrics.AlertsRaised.WithLabelValues(string(a.Type)).Inc()
	}
}
