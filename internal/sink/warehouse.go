package sink

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/avolkov/cardbatch/internal/domain"
)

const warehouseTable = "card_transactions"

// warehouseRow maps a routed transaction into the warehouse schema. Card
// numbers are stored masked only.
type warehouseRow struct {
	TransactionID    string     `bigquery:"transaction_id"`
	ExecutionID      string     `bigquery:"execution_id"`
	BatchID          string     `bigquery:"batch_id"`
	MaskedCardNumber string     `bigquery:"masked_card_number"`
	BIN              string     `bigquery:"bin"`
	CustomerID       string     `bigquery:"customer_id"`
	Amount           *big.Rat   `bigquery:"amount"`
	Currency         string     `bigquery:"currency"`
	TransactionTS    time.Time  `bigquery:"transaction_ts"`
	TransactionDate  civil.Date `bigquery:"transaction_date"`
	DateKey          int        `bigquery:"date_key"`

	MerchantID        string `bigquery:"merchant_id"`
	MerchantName      string `bigquery:"merchant_name"`
	CategoryCode      string `bigquery:"merchant_category_code"`
	CategoryDesc      string `bigquery:"category_description"`
	CategoryRisk      string `bigquery:"category_risk_level"`
	MerchantCountry   string `bigquery:"merchant_country"`
	Channel           string `bigquery:"channel"`
	AuthorizationCode string `bigquery:"authorization_code"`
	ResponseCode      string `bigquery:"response_code"`

	IsHighValue     bool   `bigquery:"is_high_value"`
	IsInternational bool   `bigquery:"is_international"`
	RoutingOutcome  string `bigquery:"routing_outcome"`

	LoadedTS time.Time `bigquery:"loaded_ts"`
}

// Warehouse loads routed transactions into the BigQuery warehouse table in
// fixed-size batches to bound memory and request size.
type Warehouse struct {
	client      *bigquery.Client
	dataset     string
	executionID string
	batchSize   int
}

// NewWarehouse wraps an existing client; the caller owns its lifecycle.
func NewWarehouse(client *bigquery.Client, dataset, executionID string, batchSize int) *Warehouse {
	return &Warehouse{client: client, dataset: dataset, executionID: executionID, batchSize: batchSize}
}

func (w *Warehouse) Name() string { return "warehouse" }

func (w *Warehouse) Write(ctx context.Context, batch []domain.Transaction) Report {
	report := Report{Sink: w.Name()}
	if len(batch) == 0 {
		return report
	}

	inserter := w.client.Dataset(w.dataset).Table(warehouseTable).Inserter()
	for start := 0; start < len(batch); start += w.batchSize {
		end := start + w.batchSize
		if end > len(batch) {
			end = len(batch)
		}

		rows := make([]*warehouseRow, 0, end-start)
		for _, tx := range batch[start:end] {
			rows = append(rows, w.toRow(tx))
		}
		if err := inserter.Put(ctx, rows); err != nil {
			report.Failed += len(rows)
			report.Err = fmt.Errorf("warehouse: inserting rows: %w", err)
			return report
		}
		report.Written += len(rows)
	}
	return report
}

func (w *Warehouse) toRow(tx domain.Transaction) *warehouseRow {
	ts := tx.Timestamp.UTC()
	return &warehouseRow{
		TransactionID:     tx.ID,
		ExecutionID:       w.executionID,
		BatchID:           tx.BatchID,
		MaskedCardNumber:  tx.MaskedCardNumber,
		BIN:               tx.BIN,
		CustomerID:        tx.CustomerID,
		Amount:            tx.Amount.Rat(),
		Currency:          tx.Currency,
		TransactionTS:     ts,
		TransactionDate:   civil.DateOf(ts),
		DateKey:           tx.DateKey,
		MerchantID:        tx.MerchantID,
		MerchantName:      tx.MerchantName,
		CategoryCode:      tx.MerchantCategoryCode,
		CategoryDesc:      tx.CategoryDescription,
		CategoryRisk:      tx.CategoryRiskLevel,
		MerchantCountry:   tx.MerchantCountry,
		Channel:           tx.Channel,
		AuthorizationCode: tx.AuthorizationCode,
		ResponseCode:      tx.ResponseCode,
		IsHighValue:       tx.IsHighValue,
		IsInternational:   tx.IsInternational,
		RoutingOutcome:    string(tx.Outcome),
		LoadedTS:          time.Now().UTC(),
	}
}
