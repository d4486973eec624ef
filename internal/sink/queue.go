package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/jobs"
)

// reviewSliceSize bounds the number of transaction ids carried by one review
// job so queue payloads stay small.
const reviewSliceSize = 1000

// FraudQueue publishes the validated batch to the fraud-analysis queue as
// review jobs, sliced to bound payload size.
type FraudQueue struct {
	publisher   jobs.Publisher
	executionID string
	date        civil.Date
}

// NewFraudQueue builds the queue sink for one run.
func NewFraudQueue(publisher jobs.Publisher, executionID string, date civil.Date) *FraudQueue {
	return &FraudQueue{publisher: publisher, executionID: executionID, date: date}
}

func (q *FraudQueue) Name() string { return "fraud-queue" }

func (q *FraudQueue) Write(ctx context.Context, batch []domain.Transaction) Report {
	report := Report{Sink: q.Name()}

	for start := 0; start < len(batch); start += reviewSliceSize {
		end := start + reviewSliceSize
		if end > len(batch) {
			end = len(batch)
		}
		slice := batch[start:end]

		job := &jobs.FraudReviewJob{
			ExecutionID:    q.executionID,
			ProcessingDate: q.date.String(),
			TransactionIDs: make([]string, 0, len(slice)),
		}
		for _, tx := range slice {
			job.TransactionIDs = append(job.TransactionIDs, tx.ID)
			if tx.IsHighValue {
				job.HighValueCount++
			}
			if tx.IsInternational {
				job.InternationalCount++
			}
		}

		if err := q.publisher.PublishFraudReview(ctx, job); err != nil {
			report.Failed += len(slice)
			report.Err = fmt.Errorf("fraud-queue: publish review job: %w", err)
			return report
		}
		report.Written += len(slice)
	}
	return report
}
