package scorer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/avolkov/cardbatch/internal/domain"
)

// DefaultModelName is the model used when the config does not override it.
const DefaultModelName = "gemini-2.0-flash"

// Gemini scores transactions through the GenAI API. Authentication comes from
// the ambient environment (GOOGLE_API_KEY or application default credentials).
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed scorer.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

// Score asks the model for a fraud probability. Any transport or parse
// failure is wrapped as domain.ErrScorerUnavailable.
func (g *Gemini) Score(ctx context.Context, tx domain.Transaction) (float64, error) {
	prompt := "You are a card fraud risk model.\n" +
		"Given the transaction below, respond with ONLY a decimal number between 0 and 1,\n" +
		"the probability that it is fraudulent. No words, no markdown.\n\n" +
		fmt.Sprintf("amount=%s currency=%s merchant=%q category=%s country=%s channel=%s response_code=%s\n",
			tx.Amount.StringFixed(4), tx.Currency, tx.MerchantName,
			tx.MerchantCategoryCode, tx.MerchantCountry, tx.Channel, tx.ResponseCode)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: generate content: %v", domain.ErrScorerUnavailable, err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return 0, fmt.Errorf("%w: empty response from model", domain.ErrScorerUnavailable)
	}

	score, err := parseScore(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrScorerUnavailable, err)
	}
	return score, nil
}

// parseScore extracts the leading decimal from the model output, tolerating
// stray fences or trailing text if the model ignored instructions.
func parseScore(raw string) (float64, error) {
	s := strings.TrimSpace(strings.Trim(raw, "`"))
	if idx := strings.IndexAny(s, " \n\t"); idx != -1 {
		s = s[:idx]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %v", raw, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("score %v out of [0,1]", v)
	}
	return v, nil
}
