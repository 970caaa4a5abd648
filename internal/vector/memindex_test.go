package vector

import (
	"context"
	"testing"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemIndex_SearchRanksByCosine(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, []domain.Point{
		{ID: "far", Vector: []float32{0, 1}, Payload: map[string]any{"text": "far"}},
		{ID: "near", Vector: []float32{1, 0.1}, Payload: map[string]any{"text": "near"}},
		{ID: "exact", Vector: []float32{1, 0}, Payload: map[string]any{"text": "exact"}},
	}))

	hits, err := m.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.Equal(t, "near", hits[1].ID)
}

func TestMemIndex_SearchAppliesFilter(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, []domain.Point{
		{ID: "a", Vector: []float32{1}, Payload: map[string]any{"namespace": "agent_decisions"}},
		{ID: "b", Vector: []float32{1}, Payload: map[string]any{"namespace": "user_profile"}},
	}))

	hits, err := m.Search(ctx, []float32{1}, 10, &domain.Filter{Must: []domain.Condition{
		{Key: "namespace", Value: "user_profile"},
	}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	hits, err = m.Search(ctx, []float32{1}, 10, &domain.Filter{Must: []domain.Condition{
		{Key: "namespace", AnyOf: []any{"agent_decisions", "user_profile"}},
	}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemIndex_UpsertReplacesByID(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, []domain.Point{{ID: "x", Vector: []float32{1}, Payload: map[string]any{"v": 1}}}))
	require.NoError(t, m.Upsert(ctx, []domain.Point{{ID: "x", Vector: []float32{1}, Payload: map[string]any{"v": 2}}}))

	assert.Equal(t, 1, m.Len())
}

func TestMemIndex_DeleteByFilter(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, []domain.Point{
		{ID: "a", Vector: []float32{1}, Payload: map[string]any{"userId": "default"}},
		{ID: "b", Vector: []float32{1}, Payload: map[string]any{"userId": "other"}},
	}))

	require.NoError(t, m.DeleteByFilter(ctx, &domain.Filter{Must: []domain.Condition{
		{Key: "userId", Value: "default"},
	}}))

	assert.Equal(t, 1, m.Len())
	hits, err := m.Search(ctx, []float32{1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}
