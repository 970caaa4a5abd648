package domain

// Namespace partitions the vector store. Writes are routed to an
// agent's default namespace; searches may span the agent's list.
type Namespace string

const (
	NamespaceDecisions      Namespace = "agent_decisions"
	NamespaceUserProfile    Namespace = "user_profile"
	NamespaceProjectContext Namespace = "project_context"
	NamespaceTradingSignals Namespace = "trading_signals"
)

func ValidNamespace(n string) bool {
	switch Namespace(n) {
	case NamespaceDecisions, NamespaceUserProfile, NamespaceProjectContext, NamespaceTradingSignals:
		return true
	}
	return false
}

// MemorySourceType records how a vector memory came to exist.
type MemorySourceType string

const (
	MemorySourceAutoCapture MemorySourceType = "auto_capture"
	MemorySourceManual      MemorySourceType = "manual"
	MemorySourceToolCall    MemorySourceType = "tool_call"
)

// Payload field keys of a memory point. The vector itself is opaque;
// these are the only fields the core reads back.
const (
	PayloadText        = "text"
	PayloadNamespace   = "namespace"
	PayloadSourceAgent = "source_agent"
	PayloadSourceType  = "source_type"
	PayloadUserID      = "userId"
	PayloadTimestamp   = "timestamp"
	PayloadUpdatedAt   = "updatedAt"
	PayloadSessionID   = "sessionId"
	PayloadConfidence  = "confidence"
	PayloadTags        = "tags"
	PayloadMetadata    = "metadata"
)

// Point is a vector store record.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// ScoredPoint is a search hit with cosine score in [0,1].
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// PayloadString reads a string payload field, tolerating absent or
// differently-typed values.
func (p ScoredPoint) PayloadString(key string) string {
	if p.Payload == nil {
		return ""
	}
	s, _ := p.Payload[key].(string)
	return s
}

// Filter is a backend-neutral conjunctive payload filter. Each condition
// matches one field; a condition with multiple values is an OR within
// that field.
type Filter struct {
	Must []Condition `json:"must,omitempty"`
}

type Condition struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	AnyOf []any  `json:"any_of,omitempty"`
}

// MatchesPayload evaluates the filter against a payload map. Used by the
// in-memory index; remote backends translate the filter to their own
// wire schema instead.
func (f *Filter) MatchesPayload(payload map[string]any) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		v, ok := payload[c.Key]
		if !ok {
			return false
		}
		if len(c.AnyOf) > 0 {
			matched := false
			for _, want := range c.AnyOf {
				if v == want {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if v != c.Value {
			return false
		}
	}
	return true
}
