package domain

import "context"

// SlotStore is the versioned structured key-value store. Every read
// first removes expired rows in the scope it touches.
type SlotStore interface {
	Set(ctx context.Context, scope Scope, w SlotWrite) (*Slot, error)
	Get(ctx context.Context, scope Scope, key string) (*Slot, error)
	GetByCategory(ctx context.Context, scope Scope, category string) ([]Slot, error)
	GetAll(ctx context.Context, scope Scope) ([]Slot, error)
	List(ctx context.Context, scope Scope, f SlotFilter) ([]Slot, error)
	Delete(ctx context.Context, scope Scope, key string) (bool, error)
	CurrentState(ctx context.Context, scope Scope) (CurrentState, error)
	Count(ctx context.Context, scope Scope) (int, error)
}

// GraphStore is the entity-relationship store with upsert edges,
// cascading entity deletes, and bounded traversal.
type GraphStore interface {
	CreateEntity(ctx context.Context, scope Scope, e *Entity) error
	GetEntity(ctx context.Context, scope Scope, id string) (*Entity, error)
	ListEntities(ctx context.Context, scope Scope, f EntityFilter) ([]Entity, error)
	UpdateEntity(ctx context.Context, scope Scope, e *Entity) error
	DeleteEntity(ctx context.Context, scope Scope, id string) (bool, error)

	CreateRelationship(ctx context.Context, scope Scope, r *Relationship) error
	GetRelationship(ctx context.Context, scope Scope, sourceID, targetID, relationType string) (*Relationship, error)
	GetRelationships(ctx context.Context, scope Scope, entityID string, direction Direction) ([]Relationship, error)
	DeleteRelationship(ctx context.Context, scope Scope, id string) (bool, error)
	DeleteRelationshipByTriple(ctx context.Context, scope Scope, sourceID, targetID, relationType string) (bool, error)

	Traverse(ctx context.Context, scope Scope, startID string, maxDepth int) (*Traversal, error)
}

// VectorIndex is the semantic memory backend.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]ScoredPoint, error)
	DeleteByFilter(ctx context.Context, filter *Filter) error
}

// EmbeddingClient turns text into a vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SlotUpdate is one extracted slot assertion.
type SlotUpdate struct {
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
}

// SlotRemoval invalidates a stale slot. Removals carry a reason and are
// not confidence-filtered.
type SlotRemoval struct {
	Key    string `json:"key"`
	Reason string `json:"reason,omitempty"`
}

// ExtractedMemory is one durable fact mined from a conversation.
type ExtractedMemory struct {
	Text       string  `json:"text"`
	Namespace  string  `json:"namespace,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the full result of mining one conversation window.
type Extraction struct {
	SlotUpdates  []SlotUpdate      `json:"slot_updates"`
	SlotRemovals []SlotRemoval     `json:"slot_removals"`
	Memories     []ExtractedMemory `json:"memories"`
}

// ExtractorClient mines a conversation for slot updates, slot removals,
// and durable memories. Implementations must return an empty Extraction
// rather than an error on parse failures.
type ExtractorClient interface {
	Extract(ctx context.Context, conversation string, currentSlots CurrentState) (*Extraction, error)
}
