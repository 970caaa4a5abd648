package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mrctran/mnemo/internal/domain"
)

// GraphStore persists entities and directed weighted relationships.
type GraphStore struct {
	db *sql.DB
}

func NewGraphStore(db *sql.DB) *GraphStore {
	return &GraphStore{db: db}
}

const entityColumns = `id, user_id, agent_id, name, entity_type, properties, created_at, updated_at`
const relationshipColumns = `id, user_id, agent_id, source_id, target_id, relation_type, weight, properties, created_at`

// CreateEntity inserts a new entity, generating an id when absent.
func (s *GraphStore) CreateEntity(ctx context.Context, scope domain.Scope, e *domain.Entity) error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	props, err := json.Marshal(orEmpty(e.Properties))
	if err != nil {
		return fmt.Errorf("encode entity properties: %w", err)
	}

	now := time.Now().UTC()
	e.User = scope.User
	e.Agent = scope.Agent
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, user_id, agent_id, name, entity_type, properties, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, scope.User, scope.Agent, e.Name, e.Type, string(props), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", e.Name, err)
	}
	return nil
}

// GetEntity returns one entity by id, or ErrNotFound.
func (s *GraphStore) GetEntity(ctx context.Context, scope domain.Scope, id string) (*domain.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ? AND user_id = ? AND agent_id = ?`,
		id, scope.User, scope.Agent,
	)
	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListEntities returns entities in the scope. Type is an equality
// filter, Name a case-insensitive substring filter.
func (s *GraphStore) ListEntities(ctx context.Context, scope domain.Scope, f domain.EntityFilter) ([]domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE user_id = ? AND agent_id = ?`
	args := []any{scope.User, scope.Agent}
	if f.Type != "" {
		query += ` AND entity_type = ?`
		args = append(args, f.Type)
	}
	if f.Name != "" {
		query += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+f.Name+"%")
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

// UpdateEntity replaces name, type, and properties of an existing entity.
func (s *GraphStore) UpdateEntity(ctx context.Context, scope domain.Scope, e *domain.Entity) error {
	props, err := json.Marshal(orEmpty(e.Properties))
	if err != nil {
		return fmt.Errorf("encode entity properties: %w", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET name = ?, entity_type = ?, properties = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND agent_id = ?`,
		e.Name, e.Type, string(props), now, e.ID, scope.User, scope.Agent,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	e.UpdatedAt = now
	return nil
}

// DeleteEntity removes an entity and every edge incident on it, in one
// transaction. Returns true iff the entity row was removed.
func (s *GraphStore) DeleteEntity(ctx context.Context, scope domain.Scope, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relationships WHERE user_id = ? AND agent_id = ? AND (source_id = ? OR target_id = ?)`,
		scope.User, scope.Agent, id, id,
	); err != nil {
		return false, fmt.Errorf("cascade relationships for %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM entities WHERE id = ? AND user_id = ? AND agent_id = ?`,
		id, scope.User, scope.Agent,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateRelationship upserts an edge on its (source, target, type)
// triple. Both endpoints must exist in the scope.
func (s *GraphStore) CreateRelationship(ctx context.Context, scope domain.Scope, r *domain.Relationship) error {
	for _, endpoint := range []string{r.SourceID, r.TargetID} {
		if _, err := s.GetEntity(ctx, scope, endpoint); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("relationship endpoint %s: %w", endpoint, ErrNotFound)
			}
			return err
		}
	}

	if r.Weight == 0 {
		r.Weight = 1.0
	}
	props, err := json.Marshal(orEmpty(r.Properties))
	if err != nil {
		return fmt.Errorf("encode relationship properties: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	r.User = scope.User
	r.Agent = scope.Agent

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO relationships (id, user_id, agent_id, source_id, target_id, relation_type, weight, properties, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id, target_id, relation_type) DO UPDATE SET
		     weight     = excluded.weight,
		     properties = excluded.properties
		 RETURNING id, created_at`,
		id, scope.User, scope.Agent, r.SourceID, r.TargetID, r.RelationType, r.Weight, string(props), now,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert relationship %s-[%s]->%s: %w", r.SourceID, r.RelationType, r.TargetID, err)
	}
	return nil
}

// GetRelationship returns the edge for a triple, or ErrNotFound.
func (s *GraphStore) GetRelationship(ctx context.Context, scope domain.Scope, sourceID, targetID, relationType string) (*domain.Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE user_id = ? AND agent_id = ? AND source_id = ? AND target_id = ? AND relation_type = ?`,
		scope.User, scope.Agent, sourceID, targetID, relationType,
	)
	r, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// GetRelationships returns the edges incident on an entity in the given
// direction, ordered by weight descending.
func (s *GraphStore) GetRelationships(ctx context.Context, scope domain.Scope, entityID string, direction domain.Direction) ([]domain.Relationship, error) {
	if !domain.ValidDirection(string(direction)) {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE user_id = ? AND agent_id = ?`
	args := []any{scope.User, scope.Agent}

	switch direction {
	case domain.DirectionOutgoing:
		query += ` AND source_id = ?`
		args = append(args, entityID)
	case domain.DirectionIncoming:
		query += ` AND target_id = ?`
		args = append(args, entityID)
	default:
		query += ` AND (source_id = ? OR target_id = ?)`
		args = append(args, entityID, entityID)
	}
	query += ` ORDER BY weight DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *r)
	}
	return edges, rows.Err()
}

// DeleteRelationship removes one edge by id.
func (s *GraphStore) DeleteRelationship(ctx context.Context, scope domain.Scope, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE id = ? AND user_id = ? AND agent_id = ?`,
		id, scope.User, scope.Agent,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteRelationshipByTriple removes the edge matching a full triple.
func (s *GraphStore) DeleteRelationshipByTriple(ctx context.Context, scope domain.Scope, sourceID, targetID, relationType string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relationships
		 WHERE user_id = ? AND agent_id = ? AND source_id = ? AND target_id = ? AND relation_type = ?`,
		scope.User, scope.Agent, sourceID, targetID, relationType,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Traverse runs a bounded breadth-first walk from startID, following
// edges in both directions. Entities at depth maxDepth are included but
// not expanded. A missing start yields empty sets.
func (s *GraphStore) Traverse(ctx context.Context, scope domain.Scope, startID string, maxDepth int) (*domain.Traversal, error) {
	result := &domain.Traversal{
		Entities:      []domain.Entity{},
		Relationships: []domain.Relationship{},
	}

	visited := map[string]bool{}
	seenEdges := map[string]bool{}
	frontier := []string{startID}

	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true

			entity, err := s.GetEntity(ctx, scope, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result.Entities = append(result.Entities, *entity)

			if depth == maxDepth {
				continue
			}

			edges, err := s.GetRelationships(ctx, scope, id, domain.DirectionBoth)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if !seenEdges[edge.ID] {
					seenEdges[edge.ID] = true
					result.Relationships = append(result.Relationships, edge)
				}
				other := edge.TargetID
				if other == id {
					other = edge.SourceID
				}
				if !visited[other] {
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	return result, nil
}

func scanEntity(row rowScanner) (*domain.Entity, error) {
	var (
		e     domain.Entity
		props string
	)
	if err := row.Scan(&e.ID, &e.User, &e.Agent, &e.Name, &e.Type, &props, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
		return nil, fmt.Errorf("decode entity properties for %s: %w", e.ID, err)
	}
	return &e, nil
}

func scanRelationship(row rowScanner) (*domain.Relationship, error) {
	var (
		r     domain.Relationship
		props string
	)
	if err := row.Scan(&r.ID, &r.User, &r.Agent, &r.SourceID, &r.TargetID, &r.RelationType, &r.Weight, &props, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &r.Properties); err != nil {
		return nil, fmt.Errorf("decode relationship properties for %s: %w", r.ID, err)
	}
	return &r, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
