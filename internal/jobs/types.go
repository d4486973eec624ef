package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeFraudReview represents a fraud-analysis review job for a slice
	// of one processing date's batch.
	JobTypeFraudReview JobType = "fraud_review"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// FraudReviewJob asks the review service to analyze a set of transactions
// committed by one batch run.
type FraudReviewJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// ExecutionID correlates the job with the batch run that published it.
	ExecutionID string `json:"execution_id"`

	// ProcessingDate is the logical batch date (YYYY-MM-DD).
	ProcessingDate string `json:"processing_date"`

	// TransactionIDs are the transactions in this review slice.
	TransactionIDs []string `json:"transaction_ids"`

	// HighValueCount and InternationalCount summarize the slice for queue
	// triage without re-reading the warehouse.
	HighValueCount     int `json:"high_value_count"`
	InternationalCount int `json:"international_count"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *FraudReviewJob) GetID() string        { return j.JobID }
func (j *FraudReviewJob) GetType() JobType     { return JobTypeFraudReview }
func (j *FraudReviewJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations (in-memory,
// Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishFraudReview publishes a fraud review job.
	PublishFraudReview(ctx context.Context, job *FraudReviewJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *FraudReviewJob) error
	GetJob(ctx context.Context, jobID string) (*FraudReviewJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*FraudReviewJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ExecutionID filters jobs by the batch run that published them.
	ExecutionID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results (0 = no limit).
	Limit int
}
