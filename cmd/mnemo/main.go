package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrctran/mnemo/internal/config"
	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/embedding"
	"github.com/mrctran/mnemo/internal/llm"
	"github.com/mrctran/mnemo/internal/plugin"
	"github.com/mrctran/mnemo/internal/store"
	"github.com/mrctran/mnemo/internal/vector"
	"go.uber.org/zap"
)

// mnemo doctor: bootstraps the local state database and the vector
// collection, reports what it finds, and waits so a supervisor can hold
// the process open while the host attaches.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	db, err := store.Open(config.DatabasePath())
	if err != nil {
		logger.Fatal("failed to open state database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("state database ready", zap.String("path", config.DatabasePath()))

	vectorClient := vector.NewClient(vector.Config{
		Host:       config.VectorHost(),
		Port:       config.VectorPort(),
		Collection: config.VectorCollection(),
		VectorSize: config.VectorSize(),
	}, logger)

	var index domain.VectorIndex = vectorClient
	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := vectorClient.EnsureCollection(ensureCtx); err != nil {
		logger.Warn("vector store unreachable, falling back to in-memory index", zap.Error(err))
		index = vector.NewMemIndex()
	}
	cancel()

	remote := embedding.NewOpenAIClient(
		config.EmbeddingBaseURL(), config.EmbeddingAPIKey(),
		config.EmbeddingModel(), config.EmbeddingRPS())
	embedder := embedding.NewGateway(remote, config.EmbeddingDimensions(), logger)

	extractor := llm.NewExtractor(
		config.LLMBaseURL(), config.LLMAPIKey(), config.LLMModel(),
		config.AutoCaptureMinConfidence(), logger)

	app := plugin.NewApp(db, index, embedder, extractor, plugin.Options{
		CaptureEnabled:   config.AutoCaptureEnabled(),
		MinConfidence:    config.AutoCaptureMinConfidence(),
		MaxContextTokens: config.ContextWindowMaxTokens(),
		MaxSlots:         config.MaxSlots(),
	}, logger)

	report(ctx, app)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("memory subsystem ready", zap.Int("tools", len(app.Tools.List())))

	<-quit
	logger.Info("stopped")
}

func report(ctx context.Context, app *plugin.App) {
	scopes := []struct {
		label string
		scope domain.Scope
	}{
		{"team", domain.Scope{User: domain.DefaultUser, Agent: domain.TeamAgent}},
		{"public", domain.Scope{User: domain.PublicUser, Agent: domain.PublicAgent}},
	}
	for _, s := range scopes {
		n, err := app.Slots.Count(ctx, s.scope)
		if err != nil {
			fmt.Printf("%s slots: unavailable (%v)\n", s.label, err)
			continue
		}
		fmt.Printf("%s slots: %d\n", s.label, n)
	}

	for _, t := range app.Tools.List() {
		fmt.Printf("tool %-28s %s\n", t.Name, t.Description)
	}
}
