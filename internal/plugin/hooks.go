package plugin

import (
	"context"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/service"
	"go.uber.org/zap"
)

// BeforeAgentStartEvent is delivered by the host before an agent turn
// begins. SystemPrompt holds the prompt as assembled so far.
type BeforeAgentStartEvent struct {
	SessionID    string
	Messages     []domain.Message
	SystemPrompt string
}

// AgentStartResult carries the (possibly rewritten) system prompt back
// to the host.
type AgentStartResult struct {
	SystemPrompt string
}

// AgentEndEvent is delivered after an agent turn completes, with the
// full message transcript of the turn.
type AgentEndEvent struct {
	SessionID string
	Messages  []domain.Message
}

// OnBeforeAgentStart injects recalled memory into the system prompt.
// A failure leaves the prompt untouched; hooks never raise into the
// host.
func (a *App) OnBeforeAgentStart(ctx context.Context, event BeforeAgentStartEvent) (result *AgentStartResult) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("recall hook panicked", zap.Any("panic", rec))
			result = nil
		}
	}()

	block := a.Recall.BuildContext(ctx, event.SessionID, event.Messages)
	if block == "" {
		return nil
	}
	return &AgentStartResult{
		SystemPrompt: service.InjectSystemPrompt(event.SystemPrompt, block),
	}
}

// OnAgentEnd runs auto-capture over the finished turn. Disabled capture
// and panics are both silent from the host's point of view.
func (a *App) OnAgentEnd(ctx context.Context, event AgentEndEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("capture hook panicked", zap.Any("panic", rec))
		}
	}()

	if !a.captureEnabled {
		return
	}
	a.Capture.Capture(ctx, event.SessionID, event.Messages)
}
