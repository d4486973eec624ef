// Package refdata provides the reference data collaborators: the merchant
// category table and the sanctions lists. Providers are queried once per run
// with bounded retries; an exhausted retry budget is a stage failure, not a
// hang.
package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/cardbatch/internal/domain"
)

// CategoryProvider serves the merchant category reference table.
type CategoryProvider interface {
	Categories(ctx context.Context) ([]domain.MerchantCategory, error)
}

// SanctionsProvider serves the OFAC screening inputs.
type SanctionsProvider interface {
	Names(ctx context.Context) ([]string, error)
	SanctionedCountries(ctx context.Context) ([]string, error)
}

const (
	loadAttempts = 3
	retryBackoff = 2 * time.Second
)

// WithRetry runs fn up to loadAttempts times with a fixed backoff between
// attempts. The last error is wrapped as domain.ErrReferenceDataUnavailable.
func WithRetry[T any](ctx context.Context, what string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt < loadAttempts {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return zero, fmt.Errorf("%w: %s: %v", domain.ErrReferenceDataUnavailable, what, ctx.Err())
			}
		}
	}
	return zero, fmt.Errorf("%w: %s after %d attempts: %v",
		domain.ErrReferenceDataUnavailable, what, loadAttempts, lastErr)
}

// StaticCategories is an in-memory CategoryProvider for tests and fixtures.
type StaticCategories struct {
	Rows []domain.MerchantCategory
}

func (s *StaticCategories) Categories(ctx context.Context) ([]domain.MerchantCategory, error) {
	return s.Rows, nil
}

// StaticSanctions is an in-memory SanctionsProvider for tests and fixtures.
type StaticSanctions struct {
	Entities  []string
	Countries []string
}

func (s *StaticSanctions) Names(ctx context.Context) ([]string, error) {
	return s.Entities, nil
}

func (s *StaticSanctions) SanctionedCountries(ctx context.Context) ([]string, error) {
	return s.Countries, nil
}
