package service

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

// captureMarkers identify text synthesised by capture itself. A turn
// containing any of them is never mined again, which breaks
// self-triggering loops.
var captureMarkers = []string{
	"[AutoCapture]",
	"Memory stored",
	"Memory updated",
}

// CaptureResult summarises one capture run.
type CaptureResult struct {
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason,omitempty"`
	SlotsUpdated   int    `json:"slots_updated"`
	SlotsRemoved   int    `json:"slots_removed"`
	MemoriesStored int    `json:"memories_stored"`
}

func skipped(reason string) *CaptureResult {
	return &CaptureResult{Skipped: true, Reason: reason}
}

// AutoCapture mines just-completed conversation turns for slot updates
// and durable memories. One capture runs at a time per process; an
// overlapping invocation is dropped, not queued.
type AutoCapture struct {
	slots         domain.SlotStore
	memories      *MemoryService
	extractor     domain.ExtractorClient
	window        WindowConfig
	minConfidence float64
	capturing     atomic.Bool
	logger        *zap.Logger
}

func NewAutoCapture(slots domain.SlotStore, memories *MemoryService, extractor domain.ExtractorClient, window WindowConfig, minConfidence float64, logger *zap.Logger) *AutoCapture {
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = 0.7
	}
	return &AutoCapture{
		slots:         slots,
		memories:      memories,
		extractor:     extractor,
		window:        window,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Capture runs the full pipeline for one agent-end event. Persistence
// failures are logged per item and never abort the rest of the batch.
func (c *AutoCapture) Capture(ctx context.Context, sessionID string, messages []domain.Message) *CaptureResult {
	if !c.capturing.CompareAndSwap(false, true) {
		return skipped("capture already running")
	}
	defer c.capturing.Store(false)

	scope := domain.ParseSessionID(sessionID)
	filter := NewNoiseFilter(scope.Agent)
	if filter.IsBlocked() {
		return skipped("agent blocked")
	}

	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		text := m.Text()
		for _, marker := range captureMarkers {
			if strings.Contains(text, marker) {
				return skipped("own capture output")
			}
		}
		texts = append(texts, text)
	}

	if filter.ShouldSkip(strings.Join(texts, "\n")) {
		return skipped("noise")
	}

	selected, stats := SelectMessages(messages, c.window)
	if len(selected) == 0 {
		return skipped("no conversation")
	}

	currentSlots, err := c.slots.CurrentState(ctx, scope)
	if err != nil {
		c.logger.Warn("capture: reading current slots failed", zap.Error(err))
		return skipped("slot read failed")
	}

	extraction, err := c.extractor.Extract(ctx, RenderConversation(selected), currentSlots)
	if err != nil {
		c.logger.Warn("capture: extraction failed", zap.Error(err))
		return skipped("extraction failed")
	}

	result := &CaptureResult{}

	// Removals first, so a stale volatile slot is recreated at version 1
	// by its replacement update.
	for _, removal := range extraction.SlotRemovals {
		removed, err := c.slots.Delete(ctx, scope, removal.Key)
		if err != nil {
			c.logger.Warn("capture: slot removal failed",
				zap.String("key", removal.Key), zap.Error(err))
			continue
		}
		if removed {
			result.SlotsRemoved++
			c.logger.Debug("capture: removed stale slot",
				zap.String("key", removal.Key), zap.String("reason", removal.Reason))
		}
	}

	for _, update := range extraction.SlotUpdates {
		if update.Confidence < c.minConfidence {
			continue
		}
		_, err := c.slots.Set(ctx, scope, domain.SlotWrite{
			Key:        update.Key,
			Value:      update.Value,
			Category:   update.Category,
			Source:     domain.SlotSourceAutoCapture,
			Confidence: update.Confidence,
		})
		if err != nil {
			c.logger.Warn("capture: slot update failed",
				zap.String("key", update.Key), zap.Error(err))
			continue
		}
		result.SlotsUpdated++
	}

	for _, memory := range extraction.Memories {
		_, err := c.memories.Store(ctx, StoreParams{
			Text:        memory.Text,
			Namespace:   filter.ResolveNamespace(memory.Namespace),
			SourceAgent: scope.Agent,
			SourceType:  domain.MemorySourceAutoCapture,
			UserID:      scope.User,
			SessionID:   sessionID,
			Confidence:  memory.Confidence,
		})
		if err != nil {
			c.logger.Warn("capture: memory store failed", zap.Error(err))
			continue
		}
		result.MemoriesStored++
	}

	c.logger.Info("capture complete",
		zap.String("agent", scope.Agent),
		zap.Int("selected_messages", stats.SelectedMessages),
		zap.Int("slots_updated", result.SlotsUpdated),
		zap.Int("slots_removed", result.SlotsRemoved),
		zap.Int("memories_stored", result.MemoriesStored))
	return result
}

// CaptureText runs capture over a single provided text, as invoked by
// the explicit capture tool. With useLLM false the text is stored
// directly as one memory without extraction.
func (c *AutoCapture) CaptureText(ctx context.Context, sessionID, text string, useLLM bool) (*CaptureResult, error) {
	if useLLM {
		return c.Capture(ctx, sessionID, []domain.Message{{Role: "user", Content: text}}), nil
	}

	scope := domain.ParseSessionID(sessionID)
	filter := NewNoiseFilter(scope.Agent)
	_, err := c.memories.Store(ctx, StoreParams{
		Text:        text,
		Namespace:   filter.TargetNamespace(),
		SourceAgent: scope.Agent,
		SourceType:  domain.MemorySourceToolCall,
		UserID:      scope.User,
		SessionID:   sessionID,
	})
	if err != nil {
		return nil, err
	}
	return &CaptureResult{MemoriesStored: 1}, nil
}
