package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Stage names the phases of a batch run, in execution order.
type Stage string

const (
	StageInitializing       Stage = "INITIALIZING"
	StageExtracting         Stage = "EXTRACTING"
	StageFraudDetecting     Stage = "FRAUD_DETECTING"
	StageComplianceChecking Stage = "COMPLIANCE_CHECKING"
	StageFinalizing         Stage = "FINALIZING"
)

// RunStatus is the terminal (or in-flight) status of a batch run.
type RunStatus string

const (
	StatusRunning               RunStatus = "RUNNING"
	StatusCompleted             RunStatus = "COMPLETED"
	StatusCompletedWithFailures RunStatus = "COMPLETED_WITH_FAILURES"
	StatusFailed                RunStatus = "FAILED"
)

// FeatureFlags enable optional stages. They are read once at run start and
// never re-evaluated mid-run.
type FeatureFlags struct {
	Fraud      bool
	Compliance bool
	Archiving  bool
}

// Counters are the run-level aggregates. They are derived from stage return
// values: Processed counts non-quarantined routed records, Failed counts
// quarantined ones.
type Counters struct {
	Processed        int
	Failed           int
	FraudAlerts      int
	ComplianceAlerts int
}

// ExecutionContext is created at run start, owned and mutated exclusively by
// the execution controller, and persisted at terminal state.
type ExecutionContext struct {
	ExecutionID    string
	ProcessingDate civil.Date
	BatchSize      int
	Flags          FeatureFlags
	Counters       Counters
	Status         RunStatus
	CurrentStage   Stage
	StartedAt      time.Time
	FinishedAt     time.Time
	StageDurations map[Stage]time.Duration
	Degraded       bool
}

// NewExecutionContext starts a run in StatusRunning at StageInitializing.
func NewExecutionContext(executionID string, date civil.Date, batchSize int, flags FeatureFlags) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID:    executionID,
		ProcessingDate: date,
		BatchSize:      batchSize,
		Flags:          flags,
		Status:         StatusRunning,
		CurrentStage:   StageInitializing,
		StartedAt:      time.Now().UTC(),
		StageDurations: make(map[Stage]time.Duration),
	}
}
