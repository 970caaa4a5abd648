package service

import (
	"strings"

	"github.com/mrctran/mnemo/internal/domain"
)

const (
	// DefaultMaxConversationTokens bounds the extractor input.
	DefaultMaxConversationTokens = 12000
	// DefaultAbsoluteMaxMessages caps the window before token budgeting.
	DefaultAbsoluteMaxMessages = 50
	// DefaultTokenEstimateDivisor approximates tokens as chars/divisor.
	DefaultTokenEstimateDivisor = 4
)

// WindowConfig controls token-budgeted message selection.
type WindowConfig struct {
	MaxConversationTokens int
	AbsoluteMaxMessages   int
	TokenEstimateDivisor  int
}

func (c WindowConfig) withDefaults() WindowConfig {
	if c.MaxConversationTokens <= 0 {
		c.MaxConversationTokens = DefaultMaxConversationTokens
	}
	if c.AbsoluteMaxMessages <= 0 {
		c.AbsoluteMaxMessages = DefaultAbsoluteMaxMessages
	}
	if c.TokenEstimateDivisor <= 0 {
		c.TokenEstimateDivisor = DefaultTokenEstimateDivisor
	}
	return c
}

// WindowStats describes one selection run.
type WindowStats struct {
	TotalMessages     int     `json:"totalMessages"`
	FilteredMessages  int     `json:"filteredMessages"`
	SelectedMessages  int     `json:"selectedMessages"`
	EstimatedTokens   int     `json:"estimatedTokens"`
	BudgetUsedPercent float64 `json:"budgetUsedPercent"`
}

// SelectMessages picks the most recent user/assistant messages that fit
// the token budget, returned in their original chronological order.
func SelectMessages(messages []domain.Message, cfg WindowConfig) ([]domain.Message, WindowStats) {
	cfg = cfg.withDefaults()
	stats := WindowStats{TotalMessages: len(messages)}

	filtered := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "user" || m.Role == "assistant" {
			filtered = append(filtered, m)
		}
	}
	stats.FilteredMessages = len(filtered)

	if len(filtered) > cfg.AbsoluteMaxMessages {
		filtered = filtered[len(filtered)-cfg.AbsoluteMaxMessages:]
	}

	// Walk newest to oldest, stopping before the budget is exceeded.
	var selected []domain.Message
	tokens := 0
	for i := len(filtered) - 1; i >= 0; i-- {
		est := estimateTokens(filtered[i], cfg.TokenEstimateDivisor)
		if tokens+est > cfg.MaxConversationTokens {
			break
		}
		tokens += est
		selected = append([]domain.Message{filtered[i]}, selected...)
	}

	stats.SelectedMessages = len(selected)
	stats.EstimatedTokens = tokens
	stats.BudgetUsedPercent = float64(tokens) / float64(cfg.MaxConversationTokens) * 100
	return selected, stats
}

// RenderConversation flattens messages to "role: text" lines for the
// extractor prompt.
func RenderConversation(messages []domain.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Text())
		sb.WriteString("\n")
	}
	return sb.String()
}

func estimateTokens(m domain.Message, divisor int) int {
	n := len(m.Role) + 2 + len(m.Text())
	return (n + divisor - 1) / divisor
}
