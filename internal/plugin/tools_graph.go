package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrctran/mnemo/internal/domain"
	"github.com/mrctran/mnemo/internal/store"
)

const (
	graphSearchMinDepth     = 1
	graphSearchMaxDepth     = 3
	graphSearchDefaultDepth = 2
)

func (a *App) toolEntityGet(ctx context.Context, sessionID string, p Params) Result {
	scope := domain.ParseSessionID(sessionID)

	if id := p.String("id"); id != "" {
		entity, err := a.Graph.GetEntity(ctx, scope, id)
		if errors.Is(err, store.ErrNotFound) {
			return Result{
				Text:    fmt.Sprintf("No entity found with id %s", id),
				Details: map[string]any{"entity": nil},
			}
		}
		if err != nil {
			return errResult(ErrKindStorage, "reading entity %s: %v", id, err)
		}
		return Result{
			Text:    fmt.Sprintf("%s (%s)", entity.Name, entity.Type),
			Details: map[string]any{"entity": entity},
		}
	}

	entities, err := a.Graph.ListEntities(ctx, scope, domain.EntityFilter{
		Type: p.String("type"),
		Name: p.String("name"),
	})
	if err != nil {
		return errResult(ErrKindStorage, "listing entities: %v", err)
	}
	return Result{
		Text:    fmt.Sprintf("Found %d entities", len(entities)),
		Details: map[string]any{"entities": entities},
	}
}

func (a *App) toolEntitySet(ctx context.Context, sessionID string, p Params) Result {
	name := p.String("name")
	entityType := p.String("type")
	if name == "" || entityType == "" {
		return errResult(ErrKindValidation, "name and type are required")
	}
	scope := domain.ParseSessionID(sessionID)

	if id := p.String("id"); id != "" {
		entity, err := a.Graph.GetEntity(ctx, scope, id)
		if errors.Is(err, store.ErrNotFound) {
			return errResult(ErrKindNotFound, "no entity with id %s", id)
		}
		if err != nil {
			return errResult(ErrKindStorage, "reading entity %s: %v", id, err)
		}
		entity.Name = name
		entity.Type = entityType
		if props := p.Map("properties"); props != nil {
			entity.Properties = props
		}
		if err := a.Graph.UpdateEntity(ctx, scope, entity); err != nil {
			return errResult(ErrKindStorage, "updating entity %s: %v", id, err)
		}
		return Result{
			Text:    fmt.Sprintf("Updated entity %s (%s)", entity.Name, entity.Type),
			Details: map[string]any{"entity": entity, "created": false},
		}
	}

	entity := &domain.Entity{
		Name:       name,
		Type:       entityType,
		Properties: p.Map("properties"),
	}
	if err := a.Graph.CreateEntity(ctx, scope, entity); err != nil {
		return errResult(ErrKindStorage, "creating entity %s: %v", name, err)
	}
	return Result{
		Text:    fmt.Sprintf("Created entity %s (%s)", entity.Name, entity.Type),
		Details: map[string]any{"entity": entity, "created": true},
	}
}

func (a *App) toolRelAdd(ctx context.Context, sessionID string, p Params) Result {
	sourceID := p.String("source_id")
	targetID := p.String("target_id")
	relationType := p.String("relation_type")
	if sourceID == "" || targetID == "" || relationType == "" {
		return errResult(ErrKindValidation, "source_id, target_id, and relation_type are required")
	}
	scope := domain.ParseSessionID(sessionID)

	rel := &domain.Relationship{
		SourceID:     sourceID,
		TargetID:     targetID,
		RelationType: relationType,
		Properties:   p.Map("properties"),
	}
	if weight, ok := p.Float("weight"); ok {
		if weight < 0 || weight > 1 {
			return errResult(ErrKindValidation, "weight must be in [0,1]")
		}
		rel.Weight = weight
	}

	err := a.Graph.CreateRelationship(ctx, scope, rel)
	if errors.Is(err, store.ErrNotFound) {
		return errResult(ErrKindNotFound, "%v", err)
	}
	if err != nil {
		return errResult(ErrKindStorage, "creating relationship: %v", err)
	}
	return Result{
		Text:    fmt.Sprintf("Linked %s -[%s]-> %s (weight %.2f)", sourceID, relationType, targetID, rel.Weight),
		Details: map[string]any{"relationship": rel},
	}
}

func (a *App) toolRelRemove(ctx context.Context, sessionID string, p Params) Result {
	scope := domain.ParseSessionID(sessionID)

	var (
		removed bool
		err     error
	)
	if id := p.String("id"); id != "" {
		removed, err = a.Graph.DeleteRelationship(ctx, scope, id)
	} else {
		sourceID := p.String("source_id")
		targetID := p.String("target_id")
		relationType := p.String("relation_type")
		if sourceID == "" || targetID == "" || relationType == "" {
			return errResult(ErrKindValidation, "either id or (source_id, target_id, relation_type) is required")
		}
		removed, err = a.Graph.DeleteRelationshipByTriple(ctx, scope, sourceID, targetID, relationType)
	}
	if err != nil {
		return errResult(ErrKindStorage, "deleting relationship: %v", err)
	}
	text := "No matching relationship found"
	if removed {
		text = "Relationship removed"
	}
	return Result{
		Text:    text,
		Details: map[string]any{"deleted": removed},
	}
}

func (a *App) toolGraphSearch(ctx context.Context, sessionID string, p Params) Result {
	entityID := p.String("entity_id")
	if entityID == "" {
		return errResult(ErrKindValidation, "entity_id is required")
	}
	depth := graphSearchDefaultDepth
	if d, ok := p.Int("depth"); ok {
		depth = d
	}
	if depth < graphSearchMinDepth {
		depth = graphSearchMinDepth
	}
	if depth > graphSearchMaxDepth {
		depth = graphSearchMaxDepth
	}

	scope := domain.ParseSessionID(sessionID)
	traversal, err := a.Graph.Traverse(ctx, scope, entityID, depth)
	if err != nil {
		return errResult(ErrKindStorage, "traversing from %s: %v", entityID, err)
	}

	if relationType := p.String("relation_type"); relationType != "" {
		filtered := traversal.Relationships[:0]
		for _, rel := range traversal.Relationships {
			if rel.RelationType == relationType {
				filtered = append(filtered, rel)
			}
		}
		traversal.Relationships = filtered
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d entities and %d relationships within depth %d",
		len(traversal.Entities), len(traversal.Relationships), depth)
	names := map[string]string{}
	for _, e := range traversal.Entities {
		names[e.ID] = e.Name
	}
	for _, rel := range traversal.Relationships {
		fmt.Fprintf(&sb, "\n  %s -[%s]-> %s", names[rel.SourceID], rel.RelationType, names[rel.TargetID])
	}

	return Result{
		Text:    sb.String(),
		Details: traversal,
	}
}
