package embedding

import (
	"context"

	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

// Gateway embeds text via the configured remote service, falling back
// to a deterministic hash embedding on any failure so downstream
// storage and dedup never stall on an unreachable embedder.
type Gateway struct {
	remote     domain.EmbeddingClient
	dimensions int
	logger     *zap.Logger
}

// NewGateway wires a remote client (may be nil for hash-only operation)
// with the fallback dimensionality.
func NewGateway(remote domain.EmbeddingClient, dimensions int, logger *zap.Logger) *Gateway {
	return &Gateway{remote: remote, dimensions: dimensions, logger: logger}
}

func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.remote != nil {
		vec, err := g.remote.Embed(ctx, text)
		if err == nil && len(vec) > 0 {
			return vec, nil
		}
		if err != nil {
			g.logger.Warn("remote embedding failed, using hash fallback", zap.Error(err))
		}
	}
	return HashEmbed(text, g.dimensions), nil
}
