package plugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/embedding"
	"github.com/mrctran/mnemo/internal/llm"
	"github.com/mrctran/mnemo/internal/store"
	"github.com/mrctran/mnemo/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*App, *llm.MockClient) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	extractor := llm.NewMockClient()
	app := NewApp(db, vector.NewMemIndex(), embedding.NewGateway(nil, 64, logger), extractor, Options{
		CaptureEnabled: true,
	}, logger)
	return app, extractor
}

func invoke(t *testing.T, app *App, tool string, params Params) Result {
	t.Helper()
	return app.Tools.Invoke(context.Background(), "assistant:test", tool, params)
}

func TestRegistry_AllToolsRegistered(t *testing.T) {
	app, _ := newTestApp(t)

	names := map[string]bool{}
	for _, tool := range app.Tools.List() {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"memory_slot_get", "memory_slot_set", "memory_slot_list", "memory_slot_delete",
		"memory_graph_entity_get", "memory_graph_entity_set",
		"memory_graph_rel_add", "memory_graph_rel_remove", "memory_graph_search",
		"memory_search", "memory_store", "memory_auto_capture",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	app, _ := newTestApp(t)

	result := invoke(t, app, "memory_nonexistent", Params{})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "unknown tool")
}

func TestRegistry_PanicRecovered(t *testing.T) {
	app, _ := newTestApp(t)
	app.Tools.Register(Tool{
		Name:    "exploding",
		Handler: func(ctx context.Context, sessionID string, p Params) Result { panic("boom") },
	})

	result := invoke(t, app, "exploding", Params{})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "exploding")
}

func TestSlotTools_RoundTrip(t *testing.T) {
	app, _ := newTestApp(t)

	set := invoke(t, app, "memory_slot_set", Params{"key": "profile.name", "value": "Alice"})
	require.False(t, set.IsError, set.Text)
	assert.Contains(t, set.Text, "v1")

	get := invoke(t, app, "memory_slot_get", Params{"key": "profile.name"})
	require.False(t, get.IsError, get.Text)
	assert.Contains(t, get.Text, "Alice")
	assert.Contains(t, get.Text, "private scope")

	del := invoke(t, app, "memory_slot_delete", Params{"key": "profile.name"})
	require.False(t, del.IsError)

	missing := invoke(t, app, "memory_slot_get", Params{"key": "profile.name"})
	require.False(t, missing.IsError)
	assert.Contains(t, missing.Text, "No slot found")
}

func TestSlotTools_Validation(t *testing.T) {
	app, _ := newTestApp(t)

	result := invoke(t, app, "memory_slot_set", Params{"value": "no key"})
	assert.True(t, result.IsError)

	result = invoke(t, app, "memory_slot_set", Params{"key": "k"})
	assert.True(t, result.IsError)

	result = invoke(t, app, "memory_slot_set", Params{"key": "k", "value": "v", "scope": "all"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "read-only")

	result = invoke(t, app, "memory_slot_get", Params{"scope": "galactic"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "invalid scope")
}

func TestSlotTools_TierFallthrough(t *testing.T) {
	app, _ := newTestApp(t)

	set := invoke(t, app, "memory_slot_set", Params{"key": "team.norm", "value": "standup at 10", "scope": "team"})
	require.False(t, set.IsError, set.Text)

	// A private read misses; scope "all" finds the team copy.
	private := invoke(t, app, "memory_slot_get", Params{"key": "team.norm"})
	assert.Contains(t, private.Text, "No slot found")

	all := invoke(t, app, "memory_slot_get", Params{"key": "team.norm", "scope": "all"})
	require.False(t, all.IsError)
	assert.Contains(t, all.Text, "standup at 10")
	assert.Contains(t, all.Text, "team scope")
}

func TestGraphTools_EntityAndRelationshipFlow(t *testing.T) {
	app, _ := newTestApp(t)

	alice := invoke(t, app, "memory_graph_entity_set", Params{"name": "Alice", "type": "person"})
	require.False(t, alice.IsError, alice.Text)
	project := invoke(t, app, "memory_graph_entity_set", Params{"name": "mnemo", "type": "project"})
	require.False(t, project.IsError, project.Text)

	aliceID := entityID(t, alice)
	projectID := entityID(t, project)

	rel := invoke(t, app, "memory_graph_rel_add", Params{
		"source_id": aliceID, "target_id": projectID, "relation_type": "works_on", "weight": 0.8,
	})
	require.False(t, rel.IsError, rel.Text)
	assert.Contains(t, rel.Text, "works_on")

	search := invoke(t, app, "memory_graph_search", Params{"entity_id": aliceID})
	require.False(t, search.IsError, search.Text)
	assert.Contains(t, search.Text, "Alice -[works_on]-> mnemo")

	remove := invoke(t, app, "memory_graph_rel_remove", Params{
		"source_id": aliceID, "target_id": projectID, "relation_type": "works_on",
	})
	require.False(t, remove.IsError)
	assert.Contains(t, remove.Text, "removed")
}

func entityID(t *testing.T, r Result) string {
	t.Helper()
	details, ok := r.Details.(map[string]any)
	require.True(t, ok)
	entity, ok := details["entity"].(*domain.Entity)
	require.True(t, ok)
	return entity.ID
}

func TestGraphTools_Validation(t *testing.T) {
	app, _ := newTestApp(t)

	result := invoke(t, app, "memory_graph_entity_set", Params{"name": "x"})
	assert.True(t, result.IsError)

	result = invoke(t, app, "memory_graph_rel_add", Params{"source_id": "a"})
	assert.True(t, result.IsError)

	result = invoke(t, app, "memory_graph_rel_add", Params{
		"source_id": "a", "target_id": "b", "relation_type": "r", "weight": 1.5,
	})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "weight")

	result = invoke(t, app, "memory_graph_search", Params{})
	assert.True(t, result.IsError)
}

func TestGraphTools_RelAddMissingEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	result := invoke(t, app, "memory_graph_rel_add", Params{
		"source_id": "ghost-a", "target_id": "ghost-b", "relation_type": "knows",
	})
	assert.True(t, result.IsError)
	details, ok := result.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ErrKindNotFound, details["kind"])
}

func TestMemoryTools_StoreAndSearch(t *testing.T) {
	app, _ := newTestApp(t)

	stored := invoke(t, app, "memory_store", Params{"text": "decided to use sqlite for local state"})
	require.False(t, stored.IsError, stored.Text)
	assert.Contains(t, stored.Text, "Memory stored")

	found := invoke(t, app, "memory_search", Params{"query": "decided to use sqlite for local state"})
	require.False(t, found.IsError, found.Text)
	assert.Contains(t, found.Text, "sqlite")
}

func TestMemoryTools_StoreDuplicateReportsUpdate(t *testing.T) {
	app, _ := newTestApp(t)

	first := invoke(t, app, "memory_store", Params{"text": "the api gateway runs on port 8080"})
	require.False(t, first.IsError)
	second := invoke(t, app, "memory_store", Params{"text": "the api gateway runs on port 8080"})
	require.False(t, second.IsError)
	assert.Contains(t, second.Text, "Memory updated")
}

func TestMemoryTools_Validation(t *testing.T) {
	app, _ := newTestApp(t)

	result := invoke(t, app, "memory_store", Params{})
	assert.True(t, result.IsError)

	result = invoke(t, app, "memory_store", Params{"text": "x", "namespace": "bogus"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "invalid namespace")

	result = invoke(t, app, "memory_search", Params{})
	assert.True(t, result.IsError)
}

func TestAutoCaptureTool(t *testing.T) {
	app, extractor := newTestApp(t)
	extractor.ExtractResponse = &domain.Extraction{
		SlotUpdates: []domain.SlotUpdate{{Key: "profile.name", Value: "Alice", Confidence: 0.95}},
	}

	result := invoke(t, app, "memory_auto_capture", Params{"text": "my name is Alice"})
	require.False(t, result.IsError, result.Text)
	assert.Contains(t, result.Text, "[AutoCapture]")
	assert.Contains(t, result.Text, "1 slots updated")

	direct := invoke(t, app, "memory_auto_capture", Params{"text": "store this verbatim", "use_llm": false})
	require.False(t, direct.IsError, direct.Text)
	assert.Contains(t, direct.Text, "1 memories stored")
}
