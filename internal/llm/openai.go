package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

// DefaultMinConfidence is the extraction confidence floor applied to
// slot updates and memories. Removals are never confidence-filtered.
const DefaultMinConfidence = 0.7

// Extractor mines a conversation window for slot updates, slot
// removals, and durable memories via an OpenAI-compatible chat
// endpoint. Any HTTP or parse failure yields an empty extraction, not
// an error: capture must never crash the agent.
type Extractor struct {
	baseURL       string
	apiKey        string
	model         string
	minConfidence float64
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewExtractor(baseURL, apiKey, model string, minConfidence float64, logger *zap.Logger) *Extractor {
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = DefaultMinConfidence
	}
	return &Extractor{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		apiKey:        apiKey,
		model:         model,
		minConfidence: minConfidence,
		httpClient:    &http.Client{},
		logger:        logger,
	}
}

// chat types for the OpenAI-compatible API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *Extractor) Extract(ctx context.Context, conversation string, currentSlots domain.CurrentState) (*domain.Extraction, error) {
	slots, err := json.MarshalIndent(currentSlots, "", "  ")
	if err != nil {
		slots = []byte("{}")
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, string(slots), conversation)},
	}

	raw, err := e.complete(ctx, messages)
	if err != nil {
		e.logger.Warn("extraction request failed", zap.Error(err))
		return emptyExtraction(), nil
	}

	extraction, err := parseExtraction(raw)
	if err != nil {
		e.logger.Warn("extraction parse failed", zap.Error(err), zap.String("raw", truncate(raw, 500)))
		return emptyExtraction(), nil
	}

	return e.filter(extraction), nil
}

func (e *Extractor) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// parseExtraction pulls the first {...} block from the model reply and
// decodes it. Models wrap JSON in fences or prose often enough that a
// strict parse would throw away good extractions.
func parseExtraction(raw string) (*domain.Extraction, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var extraction domain.Extraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &extraction); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	return &extraction, nil
}

// filter drops slot updates and memories below the confidence floor.
// Removals pass through unfiltered: a staleness judgement is not a fact
// assertion.
func (e *Extractor) filter(x *domain.Extraction) *domain.Extraction {
	out := emptyExtraction()
	out.SlotRemovals = append(out.SlotRemovals, x.SlotRemovals...)

	for _, u := range x.SlotUpdates {
		if u.Key == "" || u.Confidence < e.minConfidence {
			continue
		}
		out.SlotUpdates = append(out.SlotUpdates, u)
	}
	for _, m := range x.Memories {
		if m.Text == "" || m.Confidence < e.minConfidence {
			continue
		}
		out.Memories = append(out.Memories, m)
	}
	return out
}

func emptyExtraction() *domain.Extraction {
	return &domain.Extraction{
		SlotUpdates:  []domain.SlotUpdate{},
		SlotRemovals: []domain.SlotRemoval{},
		Memories:     []domain.ExtractedMemory{},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
