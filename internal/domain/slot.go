package domain

import (
	"strings"
	"time"
)

type SlotSource string

const (
	SlotSourceAutoCapture SlotSource = "auto_capture"
	SlotSourceManual      SlotSource = "manual"
	SlotSourceTool        SlotSource = "tool"
)

func ValidSlotSource(s string) bool {
	switch SlotSource(s) {
	case SlotSourceAutoCapture, SlotSourceManual, SlotSourceTool:
		return true
	}
	return false
}

// KnownCategories are the slot categories recognised from the first
// dot-segment of a key. Anything else is "custom".
var KnownCategories = map[string]bool{
	"profile":     true,
	"preferences": true,
	"project":     true,
	"environment": true,
}

const CategoryCustom = "custom"

// InferCategory derives a slot category from the first dot-segment of key.
func InferCategory(key string) string {
	seg := key
	if i := strings.Index(key, "."); i >= 0 {
		seg = key[:i]
	}
	if KnownCategories[seg] {
		return seg
	}
	return CategoryCustom
}

// IsInternalKey reports whether a key is reserved for internal
// bookkeeping. Internal keys are invisible to state snapshots,
// recall rendering, and the extractor.
func IsInternalKey(key string) bool {
	return strings.HasPrefix(key, "_")
}

// Slot is a versioned structured assertion keyed by (user, agent, key).
type Slot struct {
	ID         int64      `json:"id"`
	User       string     `json:"user"`
	Agent      string     `json:"agent"`
	Key        string     `json:"key"`
	Category   string     `json:"category"`
	Value      any        `json:"value"`
	Source     SlotSource `json:"source"`
	Confidence float64    `json:"confidence"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the slot's TTL has elapsed at the given instant.
func (s *Slot) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// SlotWrite is the input to a slot upsert. Category defaults to the
// inferred key prefix, source to manual, confidence to 1.
type SlotWrite struct {
	Key        string     `json:"key"`
	Value      any        `json:"value"`
	Category   string     `json:"category,omitempty"`
	Source     SlotSource `json:"source,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// SlotFilter narrows a slot listing. Prefix matches keys beginning
// with the given string.
type SlotFilter struct {
	Category string `json:"category,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// CurrentState is the two-level category -> key -> value snapshot
// handed to the extractor and rendered into the recall block.
type CurrentState map[string]map[string]any
