// Package advisor asks an OpenAI-compatible chat model for a risk assessment
// of one commodity. It implements ports.Advisor.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

const (
	defaultModel = "gpt-4o-mini"

	// Prompt size caps. The model sees the most recent days and the top of
	// each side, which is what a trader would look at too.
	maxHistoryRows = 30
	maxOrdersSide  = 15

	systemPrompt = `You assess commodity trading risk in a player-driven market.
You receive recent daily history (date, volume, average, high, low) and the top of the order book.
Reply with a single JSON object: {"score": <integer 0-100, higher is safer>, "warnings": [<short strings>], "summary": "<one sentence>"}.
Flag manipulation signs, thin volume, price spikes and stale orders. No other text.`
)

// Options configure a Client.
type Options struct {
	APIKey  string
	BaseURL string // empty for api.openai.com
	Model   string
}

// Client implements ports.Advisor.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient builds a Client. An empty API key is an error.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("advisor.NewClient: api key not set")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
		slog.Warn("advisor model not set, using default", "model", defaultModel)
	}
	return &Client{client: openai.NewClientWithConfig(cfg), model: opts.Model}, nil
}

type assessment struct {
	Score    *float64 `json:"score"`
	Warnings []string `json:"warnings"`
	Summary  string   `json:"summary"`
}

// Advise sends req to the model and parses its assessment. The score is
// clamped to 0-100; a reply without a score is an error.
func (c *Client) Advise(ctx context.Context, req domain.AdvisoryRequest) (domain.Advisory, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return domain.Advisory{}, fmt.Errorf("advisor.Advise: %w", err)
	}

	slog.Debug("requesting advisory", "model", c.model, "region", req.Key.RegionID, "type_id", req.Key.TypeID)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		return domain.Advisory{}, fmt.Errorf("advisor.Advise: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Advisory{}, errors.New("advisor.Advise: no choices returned")
	}

	adv, err := parseAssessment(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.Advisory{}, fmt.Errorf("advisor.Advise: %w", err)
	}
	return adv, nil
}

// parseAssessment decodes the model's reply, tolerating a fenced code block.
func parseAssessment(content string) (domain.Advisory, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var a assessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &a); err != nil {
		return domain.Advisory{}, fmt.Errorf("decode assessment: %w", err)
	}
	if a.Score == nil {
		return domain.Advisory{}, errors.New("assessment has no score")
	}

	score := int(*a.Score + 0.5)
	score = max(0, min(100, score))

	warnings := make([]string, 0, len(a.Warnings))
	for _, w := range a.Warnings {
		if w = strings.TrimSpace(w); w != "" {
			warnings = append(warnings, w)
		}
	}
	return domain.Advisory{Score: score, Warnings: warnings, Summary: strings.TrimSpace(a.Summary)}, nil
}

type promptInput struct {
	Market      domain.MarketKey `json:"market"`
	HorizonDays int              `json:"horizon_days"`
	History     [][]any          `json:"history"`
	Buys        [][]any          `json:"buy_orders"`  // price, volume
	Sells       [][]any          `json:"sell_orders"` // price, volume
}

// buildPrompt renders the request as compact JSON rows.
func buildPrompt(req domain.AdvisoryRequest) (string, error) {
	history := domain.NormalizeHistory(req.History, min(req.HorizonDays, maxHistoryRows))
	buys, sells := domain.OrderBook(req.Orders).Split()

	in := promptInput{
		Market:      req.Key,
		HorizonDays: req.HorizonDays,
		History:     make([][]any, 0, len(history)),
		Buys:        topOf(buys),
		Sells:       topOf(sells),
	}
	for _, h := range history {
		in.History = append(in.History, []any{h.Date.Format("2006-01-02"), h.TradedVolume, h.AveragePrice, h.HighPrice, h.LowPrice})
	}

	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	return string(b), nil
}

func topOf(side []domain.OrderBookEntry) [][]any {
	side = side[:min(len(side), maxOrdersSide)]
	out := make([][]any, len(side))
	for i, e := range side {
		out[i] = []any{e.Price, e.RemainingVolume}
	}
	return out
}
