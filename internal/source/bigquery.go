package source

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/avolkov/cardbatch/internal/domain"
)

const rawTransactionsTable = "raw_transactions"

type rawRow struct {
	TransactionID string              `bigquery:"transaction_id"`
	CardNumber    string              `bigquery:"card_number"`
	CustomerID    bigquery.NullString `bigquery:"customer_id"`

	Amount   *big.Rat `bigquery:"amount"`
	Currency string   `bigquery:"currency"`

	TransactionTS time.Time `bigquery:"transaction_ts"`

	MerchantID      bigquery.NullString `bigquery:"merchant_id"`
	MerchantName    bigquery.NullString `bigquery:"merchant_name"`
	CategoryCode    bigquery.NullString `bigquery:"merchant_category_code"`
	MerchantCountry bigquery.NullString `bigquery:"merchant_country"`

	AuthorizationCode bigquery.NullString `bigquery:"authorization_code"`
	ResponseCode      bigquery.NullString `bigquery:"response_code"`
	Channel           bigquery.NullString `bigquery:"channel"`

	BatchID bigquery.NullString `bigquery:"batch_id"`
}

// BigQueryReader reads the raw transaction feed from BigQuery.
type BigQueryReader struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryReader wraps an existing client; the caller owns its lifecycle.
func NewBigQueryReader(client *bigquery.Client, dataset string) *BigQueryReader {
	return &BigQueryReader{client: client, dataset: dataset}
}

// Fetch returns up to batchSize unprocessed transactions for the date.
// Already-processed records are excluded so a rerun sees only leftovers.
func (r *BigQueryReader) Fetch(ctx context.Context, date civil.Date, batchSize int) ([]domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id, card_number, customer_id,
			amount, currency, transaction_ts,
			merchant_id, merchant_name, merchant_category_code, merchant_country,
			authorization_code, response_code, channel, batch_id
		FROM %s.%s
		WHERE DATE(transaction_ts) = @processing_date
		  AND is_processed = FALSE
		ORDER BY transaction_ts, transaction_id
		LIMIT @batch_size
	`, r.dataset, rawTransactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "processing_date", Value: date},
		{Name: "batch_size", Value: int64(batchSize)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read query: %w", err)
	}

	var out []domain.Transaction
	for {
		var row rawRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Fetch: iterate rows: %w", err)
		}
		out = append(out, toDomain(row))
	}
	return out, nil
}

// MarkProcessed stamps the records with the execution id that consumed them.
func (r *BigQueryReader) MarkProcessed(ctx context.Context, transactionIDs []string, executionID string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET is_processed = TRUE,
		    processed_by_execution_id = @execution_id,
		    processed_ts = @processed_ts
		WHERE transaction_id IN UNNEST(@transaction_ids)
	`, r.dataset, rawTransactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "execution_id", Value: executionID},
		{Name: "processed_ts", Value: time.Now().UTC()},
		{Name: "transaction_ids", Value: transactionIDs},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkProcessed: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkProcessed: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkProcessed: job error: %w", err)
	}
	return nil
}

func toDomain(row rawRow) domain.Transaction {
	amount := decimal.Zero
	if row.Amount != nil {
		amount = decimal.NewFromBigRat(row.Amount, 4)
	}
	return domain.Transaction{
		ID:                   row.TransactionID,
		CardNumber:           row.CardNumber,
		CustomerID:           row.CustomerID.StringVal,
		Amount:               amount,
		Currency:             row.Currency,
		Timestamp:            row.TransactionTS,
		MerchantID:           row.MerchantID.StringVal,
		MerchantName:         row.MerchantName.StringVal,
		MerchantCategoryCode: row.CategoryCode.StringVal,
		MerchantCountry:      row.MerchantCountry.StringVal,
		AuthorizationCode:    row.AuthorizationCode.StringVal,
		ResponseCode:         row.ResponseCode.StringVal,
		Channel:              row.Channel.StringVal,
		BatchID:              row.BatchID.StringVal,
	}
}
