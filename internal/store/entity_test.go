package store

import (
	"context"
	"testing"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() domain.Scope {
	return domain.Scope{User: "default", Agent: "assistant"}
}

func mustCreateEntity(t *testing.T, g *GraphStore, scope domain.Scope, name, entityType string) *domain.Entity {
	t.Helper()
	e := &domain.Entity{Name: name, Type: entityType}
	require.NoError(t, g.CreateEntity(context.Background(), scope, e))
	return e
}

func TestGraphStore_RelationshipsRejectUnknownDirection(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	scope := testScope()
	alice := mustCreateEntity(t, g, scope, "alice", "person")

	_, err := g.GetRelationships(context.Background(), scope, alice.ID, domain.Direction("sideways"))
	assert.Error(t, err)
}

func TestGraphStore_EntityCRUD(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	e := &domain.Entity{Name: "mnemo", Type: "project", Properties: map[string]any{"lang": "go"}}
	require.NoError(t, g.CreateEntity(ctx, scope, e))
	assert.NotEmpty(t, e.ID)

	got, err := g.GetEntity(ctx, scope, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "mnemo", got.Name)
	assert.Equal(t, "go", got.Properties["lang"])

	got.Name = "mnemo-core"
	got.Properties = map[string]any{"lang": "go", "stable": true}
	require.NoError(t, g.UpdateEntity(ctx, scope, got))

	updated, err := g.GetEntity(ctx, scope, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "mnemo-core", updated.Name)
	assert.Equal(t, true, updated.Properties["stable"])

	removed, err := g.DeleteEntity(ctx, scope, e.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = g.GetEntity(ctx, scope, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraphStore_UpdateMissingEntity(t *testing.T) {
	g := NewGraphStore(openTestDB(t))

	err := g.UpdateEntity(context.Background(), testScope(), &domain.Entity{ID: "nope", Name: "x", Type: "y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraphStore_ListEntities(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	mustCreateEntity(t, g, scope, "Alice", "person")
	mustCreateEntity(t, g, scope, "Bob", "person")
	mustCreateEntity(t, g, scope, "mnemo", "project")

	people, err := g.ListEntities(ctx, scope, domain.EntityFilter{Type: "person"})
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Alice", people[0].Name)

	byName, err := g.ListEntities(ctx, scope, domain.EntityFilter{Name: "ali"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Alice", byName[0].Name)
}

func TestGraphStore_RelationshipTripleUpsert(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	alice := mustCreateEntity(t, g, scope, "Alice", "person")
	project := mustCreateEntity(t, g, scope, "mnemo", "project")

	first := &domain.Relationship{SourceID: alice.ID, TargetID: project.ID, RelationType: "works_on", Weight: 0.5}
	require.NoError(t, g.CreateRelationship(ctx, scope, first))

	second := &domain.Relationship{SourceID: alice.ID, TargetID: project.ID, RelationType: "works_on", Weight: 0.9}
	require.NoError(t, g.CreateRelationship(ctx, scope, second))

	assert.Equal(t, first.ID, second.ID)

	edges, err := g.GetRelationships(ctx, scope, alice.ID, domain.DirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.9, edges[0].Weight)
}

func TestGraphStore_RelationshipRequiresEndpoints(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	alice := mustCreateEntity(t, g, scope, "Alice", "person")

	err := g.CreateRelationship(ctx, scope, &domain.Relationship{
		SourceID: alice.ID, TargetID: "missing", RelationType: "knows",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraphStore_RelationshipDefaultWeight(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	a := mustCreateEntity(t, g, scope, "a", "thing")
	b := mustCreateEntity(t, g, scope, "b", "thing")

	r := &domain.Relationship{SourceID: a.ID, TargetID: b.ID, RelationType: "near"}
	require.NoError(t, g.CreateRelationship(ctx, scope, r))
	assert.Equal(t, 1.0, r.Weight)
}

func TestGraphStore_DeleteEntityCascades(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	alice := mustCreateEntity(t, g, scope, "Alice", "person")
	bob := mustCreateEntity(t, g, scope, "Bob", "person")
	project := mustCreateEntity(t, g, scope, "mnemo", "project")

	require.NoError(t, g.CreateRelationship(ctx, scope, &domain.Relationship{
		SourceID: alice.ID, TargetID: project.ID, RelationType: "works_on",
	}))
	require.NoError(t, g.CreateRelationship(ctx, scope, &domain.Relationship{
		SourceID: bob.ID, TargetID: alice.ID, RelationType: "knows",
	}))

	removed, err := g.DeleteEntity(ctx, scope, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	aliceEdges, err := g.GetRelationships(ctx, scope, alice.ID, domain.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, aliceEdges)

	bobEdges, err := g.GetRelationships(ctx, scope, bob.ID, domain.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, bobEdges)
}

func TestGraphStore_DeleteRelationshipByTriple(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	a := mustCreateEntity(t, g, scope, "a", "thing")
	b := mustCreateEntity(t, g, scope, "b", "thing")
	require.NoError(t, g.CreateRelationship(ctx, scope, &domain.Relationship{
		SourceID: a.ID, TargetID: b.ID, RelationType: "near",
	}))

	removed, err := g.DeleteRelationshipByTriple(ctx, scope, a.ID, b.ID, "near")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = g.DeleteRelationshipByTriple(ctx, scope, a.ID, b.ID, "near")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGraphStore_TraverseBounded(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	// a -> b -> c -> d chain; depth 2 from a must reach c but not d.
	a := mustCreateEntity(t, g, scope, "a", "thing")
	b := mustCreateEntity(t, g, scope, "b", "thing")
	c := mustCreateEntity(t, g, scope, "c", "thing")
	d := mustCreateEntity(t, g, scope, "d", "thing")

	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, d.ID}} {
		require.NoError(t, g.CreateRelationship(ctx, scope, &domain.Relationship{
			SourceID: pair[0], TargetID: pair[1], RelationType: "next",
		}))
	}

	result, err := g.Traverse(ctx, scope, a.ID, 2)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, e := range result.Entities {
		ids[e.ID] = true
	}
	assert.True(t, ids[a.ID])
	assert.True(t, ids[b.ID])
	assert.True(t, ids[c.ID])
	assert.False(t, ids[d.ID])
	assert.Len(t, result.Relationships, 2)
}

func TestGraphStore_TraverseFollowsBothDirections(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	scope := testScope()

	a := mustCreateEntity(t, g, scope, "a", "thing")
	b := mustCreateEntity(t, g, scope, "b", "thing")
	require.NoError(t, g.CreateRelationship(ctx, scope, &domain.Relationship{
		SourceID: b.ID, TargetID: a.ID, RelationType: "points_at",
	}))

	result, err := g.Traverse(ctx, scope, a.ID, 1)
	require.NoError(t, err)
	assert.Len(t, result.Entities, 2)
	assert.Len(t, result.Relationships, 1)
}

func TestGraphStore_TraverseMissingStart(t *testing.T) {
	g := NewGraphStore(openTestDB(t))

	result, err := g.Traverse(context.Background(), testScope(), "ghost", 3)
	require.NoError(t, err)
	assert.NotNil(t, result.Entities)
	assert.NotNil(t, result.Relationships)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Relationships)
}

func TestGraphStore_ScopeIsolation(t *testing.T) {
	g := NewGraphStore(openTestDB(t))
	ctx := context.Background()
	private := testScope()
	team := private.ForTier(domain.TierTeam)

	e := mustCreateEntity(t, g, private, "secret", "note")

	_, err := g.GetEntity(ctx, team, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	teamList, err := g.ListEntities(ctx, team, domain.EntityFilter{})
	require.NoError(t, err)
	assert.Empty(t, teamList)
}
