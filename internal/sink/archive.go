package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"

	"github.com/avolkov/cardbatch/internal/domain"
)

// Archive exports the validated batch as a CSV object in GCS, under a path
// templated by the processing date.
type Archive struct {
	client      *storage.Client
	bucket      string
	prefix      string
	date        civil.Date
	executionID string
}

// NewArchive wraps an existing client; the caller owns its lifecycle.
func NewArchive(client *storage.Client, bucket, prefix string, date civil.Date, executionID string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix, date: date, executionID: executionID}
}

func (a *Archive) Name() string { return "archive" }

// ObjectPath is the date-templated export location, e.g.
// archive/2026/08/28/transactions-<execution-id>.csv.
func (a *Archive) ObjectPath() string {
	return path.Join(
		a.prefix,
		fmt.Sprintf("%04d/%02d/%02d", a.date.Year, a.date.Month, a.date.Day),
		fmt.Sprintf("transactions-%s.csv", a.executionID),
	)
}

func (a *Archive) Write(ctx context.Context, batch []domain.Transaction) Report {
	report := Report{Sink: a.Name()}
	if len(batch) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := a.client.Bucket(a.bucket).Object(a.ObjectPath())
	w := obj.NewWriter(ctx)
	w.ContentType = "text/csv"

	if err := writeCSV(w, batch); err != nil {
		_ = w.Close()
		report.Failed = len(batch)
		report.Err = fmt.Errorf("archive: writing %s: %w", a.ObjectPath(), err)
		return report
	}
	if err := w.Close(); err != nil {
		report.Failed = len(batch)
		report.Err = fmt.Errorf("archive: finalize %s: %w", a.ObjectPath(), err)
		return report
	}

	report.Written = len(batch)
	return report
}

var archiveHeader = []string{
	"transaction_id", "masked_card_number", "bin", "amount", "currency",
	"transaction_ts", "merchant_id", "merchant_name", "merchant_category_code",
	"merchant_country", "channel", "routing_outcome",
}

func writeCSV(w interface{ Write([]byte) (int, error) }, batch []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(archiveHeader); err != nil {
		return err
	}
	for _, tx := range batch {
		record := []string{
			tx.ID,
			tx.MaskedCardNumber,
			tx.BIN,
			tx.Amount.StringFixed(4),
			tx.Currency,
			tx.Timestamp.UTC().Format(time.RFC3339),
			tx.MerchantID,
			tx.MerchantName,
			tx.MerchantCategoryCode,
			tx.MerchantCountry,
			tx.Channel,
			string(tx.Outcome),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
