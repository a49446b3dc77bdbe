package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"tradejournal/internal/domain"

	"github.com/ayush6624/go-chatgpt"
)

type TimeframeSummary struct {
	Summary string   `json:"summary"`
	Actions []string `json:"actions"`
}

type GptRepository interface {
	// SummarizeTimeframes turns precomputed KPIs into prose. it never
	// sees raw positions, only the dollar KPIs per window
	SummarizeTimeframes(ctx context.Context, kpis map[domain.Timeframe]domain.TimeframeKPIs) (map[domain.Timeframe]TimeframeSummary, error)
}

type gptRepositoryHandler struct {
	GptClient *chatgpt.Client
}

func NewGptRepository(apiKey string) (GptRepository, error) {
	client, err := chatgpt.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct gpt client: %w", err)
	}

	return gptRepositoryHandler{
		GptClient: client,
	}, nil
}

const analysisPrompt = `
You are reviewing a trader's journal. You will receive a JSON object keyed by timeframe (ALL, YTD, 1M, 3M, 6M, 1Y). Each value holds dollar KPIs for that window:

- totalPL / plAbs: total profit or loss to date, in dollars (ALL only)
- plChangeAbs: change in profit or loss across the window, in dollars
- maxDrawdownAbs: the lowest point in the window measured against the window's first value, in dollars. always zero or negative

Every number is a dollar amount. Never describe any number as a percentage and never compute percentages.

Respond with only a JSON object keyed by the same timeframes. Each value must be:
{"summary": "<two or three sentences>", "actions": ["<short actionable suggestion>", ...]}

Keep at most three actions per timeframe.
`

func (h gptRepositoryHandler) SummarizeTimeframes(ctx context.Context, kpis map[domain.Timeframe]domain.TimeframeKPIs) (map[domain.Timeframe]TimeframeSummary, error) {
	input, err := json.Marshal(kpis)
	if err != nil {
		return nil, fmt.Errorf("failed to encode kpis: %w", err)
	}

	res, err := h.GptClient.Send(ctx, &chatgpt.ChatCompletionRequest{
		Model: chatgpt.GPT4,
		Messages: []chatgpt.ChatMessage{
			{
				Role:    chatgpt.ChatGPTModelRoleSystem,
				Content: analysisPrompt,
			},
			{
				Role:    chatgpt.ChatGPTModelRoleUser,
				Content: string(input),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from gpt: %w", err)
	}
	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("gpt returned no choices")
	}

	return ParseTimeframeSummaries(res.Choices[0].Message.Content)
}

// ParseTimeframeSummaries reads the model's JSON answer, tolerating a
// fenced code block around it
func ParseTimeframeSummaries(content string) (map[domain.Timeframe]TimeframeSummary, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	out := map[domain.Timeframe]TimeframeSummary{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse gpt summary: %w", err)
	}
	for tf, s := range out {
		if s.Actions == nil {
			s.Actions = []string{}
			out[tf] = s
		}
	}
	return out, nil
}
