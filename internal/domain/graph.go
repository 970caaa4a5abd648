package domain

import "time"

// Entity is a node in the knowledge graph.
type Entity struct {
	ID         string         `json:"id"`
	User       string         `json:"user"`
	Agent      string         `json:"agent"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Relationship is a directed weighted edge between two entities in the
// same scope. (source_id, target_id, relation_type) is unique; creating
// the same triple again upserts weight and properties.
type Relationship struct {
	ID           string         `json:"id"`
	User         string         `json:"user"`
	Agent        string         `json:"agent"`
	SourceID     string         `json:"source_id"`
	TargetID     string         `json:"target_id"`
	RelationType string         `json:"relation_type"`
	Weight       float64        `json:"weight"`
	Properties   map[string]any `json:"properties,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

func ValidDirection(d string) bool {
	switch Direction(d) {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

// EntityFilter narrows an entity listing: Type is an equality match,
// Name a case-insensitive substring match.
type EntityFilter struct {
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// Traversal is the result of a bounded BFS: the unique entities and
// relationships visited, in insertion order.
type Traversal struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}
