package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/avolkov/cardbatch/internal/domain"
)

// NotionBoard pushes requires-review alerts as pages to a Notion database so
// analysts can triage them without warehouse access.
type NotionBoard struct {
	client     *notionapi.Client
	databaseID string
}

// NewNotionBoard creates a board backed by the given Notion database.
func NewNotionBoard(token, databaseID string) *NotionBoard {
	return &NotionBoard{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: databaseID,
	}
}

// PushAlerts creates one page per alert. The first failure aborts the push;
// the caller treats board failures as non-fatal to the run.
func (b *NotionBoard) PushAlerts(ctx context.Context, alerts []domain.Alert) error {
	for _, alert := range alerts {
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(b.databaseID),
			},
			Properties: alertToProperties(alert),
		}
		if _, err := b.client.Page.Create(ctx, req); err != nil {
			return fmt.Errorf("PushAlerts: create page for alert %s: %w", alert.AlertID, err)
		}
	}
	return nil
}

// alertToProperties maps an alert into the review database columns.
func alertToProperties(alert domain.Alert) notionapi.Properties {
	props := notionapi.Properties{
		"Alert ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: alert.AlertID},
				},
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(alert.Type)},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(alert.Category)},
		},
		"Risk Score": notionapi.NumberProperty{
			Number: alert.RiskScore,
		},
		"Detected At": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&alert.DetectedAt),
			},
		},
		"Execution": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: alert.ExecutionID},
				},
			},
		},
	}

	if len(alert.TransactionIDs) > 0 {
		props["Transactions"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: strings.Join(alert.TransactionIDs, ", ")},
				},
			},
		}
	}
	if alert.RiskLevel != "" {
		props["Risk Level"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: alert.RiskLevel},
		}
	}
	return props
}
