package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrMemoryTextEmpty   = errors.New("text is required")
	ErrMemoryTextTooLong = errors.New("text exceeds 10000 characters")
	ErrQueryEmpty        = errors.New("query is required")
)

const (
	// MaxMemoryTextLen bounds stored memory text.
	MaxMemoryTextLen = 10000
	// DefaultSearchLimit is the result count when none is requested.
	DefaultSearchLimit = 5
	// MaxSearchLimit caps requested result counts.
	MaxSearchLimit = 20
	// DefaultMinScore is the semantic search relevance floor.
	DefaultMinScore = 0.7
	// dedupeNeighbours is how many candidates are checked for duplicates
	// before an insert.
	dedupeNeighbours = 5
)

// MemoryService stores and searches semantic memories in the vector
// index, deduplicating before every insert.
type MemoryService struct {
	index    domain.VectorIndex
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewMemoryService(index domain.VectorIndex, embedder domain.EmbeddingClient, logger *zap.Logger) *MemoryService {
	return &MemoryService{index: index, embedder: embedder, logger: logger}
}

// StoreParams describes one memory write.
type StoreParams struct {
	Text        string
	Namespace   domain.Namespace
	SourceAgent string
	SourceType  domain.MemorySourceType
	UserID      string
	SessionID   string
	Confidence  float64
	Tags        []string
	Metadata    map[string]any
}

// StoreResult reports where the memory went.
type StoreResult struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// Store embeds the text, checks the target namespace for a duplicate,
// and either refreshes the duplicate point in place or inserts a new
// one under a fresh id.
func (s *MemoryService) Store(ctx context.Context, p StoreParams) (*StoreResult, error) {
	if p.Text == "" {
		return nil, ErrMemoryTextEmpty
	}
	if len(p.Text) > MaxMemoryTextLen {
		return nil, ErrMemoryTextTooLong
	}
	if !domain.ValidNamespace(string(p.Namespace)) {
		p.Namespace = domain.NamespaceDecisions
	}
	if p.SourceType == "" {
		p.SourceType = domain.MemorySourceManual
	}
	if p.UserID == "" {
		p.UserID = domain.DefaultUser
	}

	vec, err := s.embedder.Embed(ctx, p.Text)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}

	filter := &domain.Filter{Must: []domain.Condition{
		{Key: domain.PayloadNamespace, Value: string(p.Namespace)},
		{Key: domain.PayloadUserID, Value: p.UserID},
	}}

	id := ""
	updated := false
	neighbours, err := s.index.Search(ctx, vec, dedupeNeighbours, filter)
	if err != nil {
		// Dedup is best effort; storage still proceeds.
		s.logger.Warn("duplicate check failed", zap.Error(err))
	} else if dup := FindDuplicate(neighbours, DefaultDuplicateThreshold); dup != "" {
		id = dup
		updated = true
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	payload := map[string]any{
		domain.PayloadText:        p.Text,
		domain.PayloadNamespace:   string(p.Namespace),
		domain.PayloadSourceAgent: p.SourceAgent,
		domain.PayloadSourceType:  string(p.SourceType),
		domain.PayloadUserID:      p.UserID,
		domain.PayloadTimestamp:   now,
		domain.PayloadUpdatedAt:   now,
	}
	if p.SessionID != "" {
		payload[domain.PayloadSessionID] = p.SessionID
	}
	if p.Confidence > 0 {
		payload[domain.PayloadConfidence] = p.Confidence
	}
	if len(p.Tags) > 0 {
		payload[domain.PayloadTags] = p.Tags
	}
	if len(p.Metadata) > 0 {
		payload[domain.PayloadMetadata] = p.Metadata
	}

	if err := s.index.Upsert(ctx, []domain.Point{{ID: id, Vector: vec, Payload: payload}}); err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}
	return &StoreResult{ID: id, Updated: updated}, nil
}

// SearchParams describes one semantic query.
type SearchParams struct {
	Query       string
	Limit       int
	Namespaces  []domain.Namespace
	SourceAgent string
	UserID      string
	SessionID   string
	MinScore    float64
}

// Search embeds the query, applies an OR filter over the namespaces,
// and returns hits at or above MinScore.
func (s *MemoryService) Search(ctx context.Context, p SearchParams) ([]domain.ScoredPoint, error) {
	if p.Query == "" {
		return nil, ErrQueryEmpty
	}
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}
	if p.Limit > MaxSearchLimit {
		p.Limit = MaxSearchLimit
	}
	if p.MinScore <= 0 {
		p.MinScore = DefaultMinScore
	}

	vec, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var must []domain.Condition
	switch len(p.Namespaces) {
	case 0:
	case 1:
		must = append(must, domain.Condition{Key: domain.PayloadNamespace, Value: string(p.Namespaces[0])})
	default:
		anyOf := make([]any, 0, len(p.Namespaces))
		for _, ns := range p.Namespaces {
			anyOf = append(anyOf, string(ns))
		}
		must = append(must, domain.Condition{Key: domain.PayloadNamespace, AnyOf: anyOf})
	}
	if p.SourceAgent != "" {
		must = append(must, domain.Condition{Key: domain.PayloadSourceAgent, Value: p.SourceAgent})
	}
	if p.UserID != "" {
		must = append(must, domain.Condition{Key: domain.PayloadUserID, Value: p.UserID})
	}
	if p.SessionID != "" {
		must = append(must, domain.Condition{Key: domain.PayloadSessionID, Value: p.SessionID})
	}

	var filter *domain.Filter
	if len(must) > 0 {
		filter = &domain.Filter{Must: must}
	}

	hits, err := s.index.Search(ctx, vec, p.Limit, filter)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= p.MinScore {
			kept = append(kept, h)
		}
	}
	return kept, nil
}
