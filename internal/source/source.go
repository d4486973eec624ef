// Package source reads unprocessed raw transactions for a processing date
// and marks them consumed after a successful warehouse load, so reruns do not
// double-count records.
package source

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Reader is the source feed collaborator. Fetch must exclude records already
// marked processed, so re-querying after a completed run returns nothing.
type Reader interface {
	Fetch(ctx context.Context, date civil.Date, batchSize int) ([]domain.Transaction, error)
	MarkProcessed(ctx context.Context, transactionIDs []string, executionID string) error
}
