package plugin

import (
	"context"
	"testing"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnBeforeAgentStart_InjectsMemory(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()
	scope := domain.ParseSessionID("assistant:test")

	_, err := app.Slots.Set(ctx, scope, domain.SlotWrite{Key: "profile.name", Value: "Alice"})
	require.NoError(t, err)

	result := app.OnBeforeAgentStart(ctx, BeforeAgentStartEvent{
		SessionID:    "assistant:test",
		SystemPrompt: "<system>base</system>",
	})

	require.NotNil(t, result)
	assert.Contains(t, result.SystemPrompt, "<memory-context>")
	assert.Contains(t, result.SystemPrompt, "Alice")
	assert.Contains(t, result.SystemPrompt, "base")
}

func TestOnBeforeAgentStart_NoMemoryNoChange(t *testing.T) {
	app, _ := newTestApp(t)

	result := app.OnBeforeAgentStart(context.Background(), BeforeAgentStartEvent{
		SessionID:    "assistant:test",
		SystemPrompt: "base",
	})

	assert.Nil(t, result)
}

func TestOnAgentEnd_RunsCapture(t *testing.T) {
	app, extractor := newTestApp(t)
	extractor.ExtractResponse = &domain.Extraction{
		SlotUpdates: []domain.SlotUpdate{{Key: "preferences.editor", Value: "vim", Confidence: 0.9}},
	}

	app.OnAgentEnd(context.Background(), AgentEndEvent{
		SessionID: "assistant:test",
		Messages:  []domain.Message{{Role: "user", Content: "I switched my editor to vim"}},
	})

	scope := domain.ParseSessionID("assistant:test")
	slot, err := app.Slots.Get(context.Background(), scope, "preferences.editor")
	require.NoError(t, err)
	assert.Equal(t, "vim", slot.Value)
}

func TestOnAgentEnd_DisabledCaptureIsNoop(t *testing.T) {
	app, extractor := newTestApp(t)
	app.captureEnabled = false
	extractor.ExtractResponse = &domain.Extraction{
		SlotUpdates: []domain.SlotUpdate{{Key: "preferences.editor", Value: "vim", Confidence: 0.9}},
	}

	app.OnAgentEnd(context.Background(), AgentEndEvent{
		SessionID: "assistant:test",
		Messages:  []domain.Message{{Role: "user", Content: "I switched my editor to vim"}},
	})

	assert.Empty(t, extractor.ExtractCalls)
	_, err := app.Slots.Get(context.Background(), domain.ParseSessionID("assistant:test"), "preferences.editor")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
