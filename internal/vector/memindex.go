package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/embedding"
)

// MemIndex is an in-process vector index with exact cosine scoring.
// It backs tests and offline runs where no remote store is reachable.
type MemIndex struct {
	mu     sync.RWMutex
	points map[string]domain.Point
	order  []string
}

func NewMemIndex() *MemIndex {
	return &MemIndex{points: map[string]domain.Point{}}
}

func (m *MemIndex) EnsureCollection(ctx context.Context) error {
	return nil
}

func (m *MemIndex) Upsert(ctx context.Context, points []domain.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if _, exists := m.points[p.ID]; !exists {
			m.order = append(m.order, p.ID)
		}
		m.points[p.ID] = p
	}
	return nil
}

func (m *MemIndex) Search(ctx context.Context, vec []float32, limit int, filter *domain.Filter) ([]domain.ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]domain.ScoredPoint, 0, len(m.points))
	for _, id := range m.order {
		p, ok := m.points[id]
		if !ok {
			continue
		}
		if !filter.MatchesPayload(p.Payload) {
			continue
		}
		hits = append(hits, domain.ScoredPoint{
			ID:      p.ID,
			Score:   embedding.CosineSimilarity(vec, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MemIndex) DeleteByFilter(ctx context.Context, filter *domain.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, id := range m.order {
		p := m.points[id]
		if filter.MatchesPayload(p.Payload) {
			delete(m.points, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return nil
}

// Len returns the number of stored points.
func (m *MemIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}
