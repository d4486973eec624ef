// Package sink commits validated transactions to the downstream stores:
// warehouse, fraud-review queue, and archive export. Sinks are independent;
// one sink failing never blocks or rolls back the others.
package sink

import (
	"context"
	"sync"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Sink writes one validated batch to a single destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch []domain.Transaction) Report
}

// Report is one sink's outcome for one batch. Err is recorded, surfaced in
// the run summary, and non-fatal to the other sinks.
type Report struct {
	Sink    string
	Written int
	Failed  int
	Err     error
}

// Fanout writes the same batch to every sink concurrently and waits for all
// of them to report, regardless of individual success.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a fan-out over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Write dispatches the batch to every sink and returns the reports in sink
// order. Sink writes are not transactionally joined: partial failure leaves
// the successful destinations committed.
func (f *Fanout) Write(ctx context.Context, batch []domain.Transaction) []Report {
	reports := make([]Report, len(f.sinks))

	var wg sync.WaitGroup
	for i, s := range f.sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			reports[i] = s.Write(ctx, batch)
		}(i, s)
	}
	wg.Wait()

	return reports
}
