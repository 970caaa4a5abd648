package plugin

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Error kinds reported in tool result details.
const (
	ErrKindValidation = "validation"
	ErrKindNotFound   = "not_found"
	ErrKindStorage    = "storage_unavailable"
	ErrKindInternal   = "internal"
)

// Result is what every tool returns to the host: a one-line human
// summary plus a structured details record. Errors are in-band.
type Result struct {
	Text    string `json:"text"`
	Details any    `json:"details,omitempty"`
	IsError bool   `json:"isError,omitempty"`
}

func errResult(kind, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{
		Text:    msg,
		Details: map[string]any{"kind": kind, "error": msg},
		IsError: true,
	}
}

// Params is the untyped parameter map a tool receives from the host.
type Params map[string]any

func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Params) StringDefault(key, fallback string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return fallback
}

// Float reads a numeric parameter; JSON numbers arrive as float64 but
// integer-typed callers are tolerated.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (p Params) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	return int(f), ok
}

func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// Handler executes one tool invocation in the context of a session.
type Handler func(ctx context.Context, sessionID string, p Params) Result

// Tool is one named entry of the surface exposed to the agent runtime.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry holds the tool surface. Invoke never panics into the host.
type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{tools: map[string]Tool{}, logger: logger}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs a tool by name. Unknown names and handler panics both
// surface as in-band error results.
func (r *Registry) Invoke(ctx context.Context, sessionID, name string, p Params) (result Result) {
	tool, ok := r.tools[name]
	if !ok {
		return errResult(ErrKindValidation, "unknown tool %q", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked",
				zap.String("tool", name), zap.Any("panic", rec))
			result = errResult(ErrKindInternal, "tool %s failed", name)
		}
	}()

	return tool.Handler(ctx, sessionID, p)
}
