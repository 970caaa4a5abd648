package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/service"
)

func (a *App) toolMemorySearch(ctx context.Context, sessionID string, p Params) Result {
	query := p.String("query")
	if query == "" {
		return errResult(ErrKindValidation, "query is required")
	}

	scope := domain.ParseSessionID(sessionID)
	params := service.SearchParams{
		Query:       query,
		SourceAgent: p.String("sourceAgent"),
		SessionID:   p.String("sessionId"),
		UserID:      p.StringDefault("userId", scope.User),
	}
	if limit, ok := p.Int("limit"); ok {
		params.Limit = limit
	}
	if minScore, ok := p.Float("minScore"); ok {
		params.MinScore = minScore
	}
	if ns := p.String("namespace"); ns != "" {
		if !domain.ValidNamespace(ns) {
			return errResult(ErrKindValidation, "invalid namespace %q", ns)
		}
		params.Namespaces = []domain.Namespace{domain.Namespace(ns)}
	} else {
		params.Namespaces = service.NewNoiseFilter(scope.Agent).Namespaces()
	}

	hits, err := a.Memories.Search(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrQueryEmpty) {
			return errResult(ErrKindValidation, "%v", err)
		}
		return errResult(ErrKindStorage, "searching memories: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d memories", len(hits))
	for _, h := range hits {
		fmt.Fprintf(&sb, "\n  [%.2f] (%s) %s",
			h.Score, h.PayloadString(domain.PayloadNamespace), h.PayloadString(domain.PayloadText))
	}
	return Result{
		Text:    sb.String(),
		Details: map[string]any{"memories": hits},
	}
}

func (a *App) toolMemoryStore(ctx context.Context, sessionID string, p Params) Result {
	text := p.String("text")
	if text == "" {
		return errResult(ErrKindValidation, "text is required")
	}

	scope := domain.ParseSessionID(sessionID)
	filter := service.NewNoiseFilter(scope.Agent)
	namespace := filter.TargetNamespace()
	if ns := p.String("namespace"); ns != "" {
		if !domain.ValidNamespace(ns) {
			return errResult(ErrKindValidation, "invalid namespace %q", ns)
		}
		namespace = domain.Namespace(ns)
	}

	result, err := a.Memories.Store(ctx, service.StoreParams{
		Text:        text,
		Namespace:   namespace,
		SourceAgent: scope.Agent,
		SourceType:  domain.MemorySourceToolCall,
		UserID:      p.StringDefault("userId", scope.User),
		SessionID:   p.StringDefault("sessionId", sessionID),
		Metadata:    p.Map("metadata"),
	})
	if err != nil {
		if errors.Is(err, service.ErrMemoryTextEmpty) || errors.Is(err, service.ErrMemoryTextTooLong) {
			return errResult(ErrKindValidation, "%v", err)
		}
		return errResult(ErrKindStorage, "storing memory: %v", err)
	}

	verb := "Memory stored"
	if result.Updated {
		verb = "Memory updated"
	}
	return Result{
		Text:    fmt.Sprintf("%s in %s (id %s)", verb, namespace, result.ID),
		Details: result,
	}
}

func (a *App) toolAutoCapture(ctx context.Context, sessionID string, p Params) Result {
	text := p.String("text")
	if text == "" {
		return errResult(ErrKindValidation, "text is required")
	}

	result, err := a.Capture.CaptureText(ctx, sessionID, text, p.Bool("use_llm", true))
	if err != nil {
		return errResult(ErrKindStorage, "capture failed: %v", err)
	}
	if result.Skipped {
		return Result{
			Text:    fmt.Sprintf("[AutoCapture] Skipped: %s", result.Reason),
			Details: result,
		}
	}
	return Result{
		Text: fmt.Sprintf("[AutoCapture] %d slots updated, %d removed, %d memories stored",
			result.SlotsUpdated, result.SlotsRemoved, result.MemoriesStored),
		Details: result,
	}
}
