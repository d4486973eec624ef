package refdata

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/avolkov/cardbatch/internal/domain"
)

const (
	categoriesTable      = "merchant_categories"
	sanctionsNamesTable  = "sanctions_entities"
	sanctionedCountryTbl = "sanctioned_countries"
)

type categoryRow struct {
	Code        string              `bigquery:"category_code"`
	Description bigquery.NullString `bigquery:"description"`
	RiskLevel   bigquery.NullString `bigquery:"risk_level"`
	Restricted  bool                `bigquery:"restricted"`
}

// BigQueryCategories reads the merchant category reference table.
type BigQueryCategories struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryCategories wraps an existing client; the caller owns its lifecycle.
func NewBigQueryCategories(client *bigquery.Client, dataset string) *BigQueryCategories {
	return &BigQueryCategories{client: client, dataset: dataset}
}

func (p *BigQueryCategories) Categories(ctx context.Context) ([]domain.MerchantCategory, error) {
	q := p.client.Query(fmt.Sprintf(`
		SELECT category_code, description, risk_level, restricted
		FROM %s.%s
		WHERE active = TRUE
	`, p.dataset, categoriesTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Categories: read query: %w", err)
	}

	var out []domain.MerchantCategory
	for {
		var row categoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Categories: iterate rows: %w", err)
		}
		out = append(out, domain.MerchantCategory{
			Code:        row.Code,
			Description: row.Description.StringVal,
			RiskLevel:   row.RiskLevel.StringVal,
			Restricted:  row.Restricted,
		})
	}
	return out, nil
}

// BigQuerySanctions reads the sanctions entity and country lists.
type BigQuerySanctions struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQuerySanctions wraps an existing client; the caller owns its lifecycle.
func NewBigQuerySanctions(client *bigquery.Client, dataset string) *BigQuerySanctions {
	return &BigQuerySanctions{client: client, dataset: dataset}
}

func (p *BigQuerySanctions) Names(ctx context.Context) ([]string, error) {
	return p.readColumn(ctx, fmt.Sprintf(`SELECT entity_name AS value FROM %s.%s`, p.dataset, sanctionsNamesTable))
}

func (p *BigQuerySanctions) SanctionedCountries(ctx context.Context) ([]string, error) {
	return p.readColumn(ctx, fmt.Sprintf(`SELECT country_code AS value FROM %s.%s`, p.dataset, sanctionedCountryTbl))
}

func (p *BigQuerySanctions) readColumn(ctx context.Context, query string) ([]string, error) {
	it, err := p.client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("readColumn: read query: %w", err)
	}

	var out []string
	for {
		var row struct {
			Value string `bigquery:"value"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readColumn: iterate rows: %w", err)
		}
		out = append(out, row.Value)
	}
	return out, nil
}
