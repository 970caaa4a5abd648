package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrctran/mnemo/internal/domain"
	"go.uber.org/zap"
)

const (
	contextStartMarker = "<memory-context>"
	contextEndMarker   = "</memory-context>"

	recallGraphEntities    = 10
	recallGraphExpanded    = 5
	recallGraphEdgesEach   = 2
	recallRecentSlots      = 5
	recallSemanticLimit    = 5
	recallSemanticMinScore = 0.7
	recallValueMaxLen      = 100
)

// AutoRecall assembles the context block injected into the agent's
// system prompt before it starts a turn.
type AutoRecall struct {
	slots    domain.SlotStore
	graph    domain.GraphStore
	memories *MemoryService
	maxSlots int
	logger   *zap.Logger
}

func NewAutoRecall(slots domain.SlotStore, graph domain.GraphStore, memories *MemoryService, maxSlots int, logger *zap.Logger) *AutoRecall {
	if maxSlots <= 0 {
		maxSlots = 50
	}
	return &AutoRecall{
		slots:    slots,
		graph:    graph,
		memories: memories,
		maxSlots: maxSlots,
		logger:   logger,
	}
}

// BuildContext renders the memory block for one session. Each section
// degrades independently: a failing store or index empties its section
// and the rest still renders.
func (r *AutoRecall) BuildContext(ctx context.Context, sessionID string, messages []domain.Message) string {
	scope := domain.ParseSessionID(sessionID)

	allSlots := r.collectSlots(ctx, scope)

	var sections []string
	if s := r.renderCurrentState(allSlots); s != "" {
		sections = append(sections, s)
	}
	if s := r.renderGraph(ctx, scope); s != "" {
		sections = append(sections, s)
	}
	if s := r.renderRecentUpdates(allSlots); s != "" {
		sections = append(sections, s)
	}
	if s := r.renderSemantic(ctx, scope, messages); s != "" {
		sections = append(sections, s)
	}

	if len(sections) == 0 {
		return ""
	}
	return contextStartMarker + "\n" + strings.Join(sections, "\n") + "\n" + contextEndMarker
}

// InjectSystemPrompt splices the block into an existing system prompt:
// immediately after a closing </system> tag when present, otherwise
// prepended.
func InjectSystemPrompt(existing, block string) string {
	if block == "" {
		return existing
	}
	if existing == "" {
		return block
	}
	const closer = "</system>"
	if idx := strings.Index(existing, closer); idx >= 0 {
		cut := idx + len(closer)
		return existing[:cut] + "\n\n" + block + existing[cut:]
	}
	return block + "\n\n" + existing
}

// collectSlots reads each tier independently. A reader may observe a
// newer value in one scope than another; the freshness merge tolerates
// that. Expired slots are treated as absent regardless of when the
// store last cleaned them up.
func (r *AutoRecall) collectSlots(ctx context.Context, scope domain.Scope) []domain.Slot {
	now := time.Now().UTC()
	var all []domain.Slot
	for _, tier := range scope.MergeOrder() {
		slots, err := r.slots.GetAll(ctx, tier)
		if err != nil {
			r.logger.Warn("recall: reading slots failed",
				zap.String("user", tier.User), zap.String("agent", tier.Agent), zap.Error(err))
			continue
		}
		for _, s := range slots {
			if s.Expired(now) {
				continue
			}
			all = append(all, s)
		}
	}
	return all
}

// renderCurrentState merges the tiers per (category, key), keeping the
// slot with the greatest updated_at. Freshness wins over scope.
func (r *AutoRecall) renderCurrentState(all []domain.Slot) string {
	type slotKey struct{ category, key string }
	merged := map[slotKey]domain.Slot{}
	for _, s := range all {
		if domain.IsInternalKey(s.Key) {
			continue
		}
		k := slotKey{s.Category, s.Key}
		if prev, ok := merged[k]; !ok || s.UpdatedAt.After(prev.UpdatedAt) {
			merged[k] = s
		}
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]slotKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].key < keys[j].key
	})
	if len(keys) > r.maxSlots {
		keys = keys[:r.maxSlots]
	}

	var sb strings.Builder
	sb.WriteString("<current-state>\n")
	lastCategory := ""
	for _, k := range keys {
		if k.category != lastCategory {
			fmt.Fprintf(&sb, "[%s]\n", k.category)
			lastCategory = k.category
		}
		fmt.Fprintf(&sb, "  %s: %s\n", k.key, compactValue(merged[k].Value))
	}
	sb.WriteString("</current-state>")
	return sb.String()
}

// renderGraph summarises the private-scope graph: up to ten entities,
// with up to two outgoing edges for the first five.
func (r *AutoRecall) renderGraph(ctx context.Context, scope domain.Scope) string {
	entities, err := r.graph.ListEntities(ctx, scope, domain.EntityFilter{})
	if err != nil {
		r.logger.Warn("recall: listing entities failed", zap.Error(err))
		return ""
	}
	if len(entities) == 0 {
		return ""
	}
	if len(entities) > recallGraphEntities {
		entities = entities[:recallGraphEntities]
	}

	names := map[string]string{}
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	var sb strings.Builder
	sb.WriteString("<knowledge-graph>\n")
	for i, e := range entities {
		fmt.Fprintf(&sb, "  %s (%s)\n", e.Name, e.Type)
		if i >= recallGraphExpanded {
			continue
		}
		edges, err := r.graph.GetRelationships(ctx, scope, e.ID, domain.DirectionOutgoing)
		if err != nil {
			r.logger.Warn("recall: reading relationships failed",
				zap.String("entity", e.ID), zap.Error(err))
			continue
		}
		if len(edges) > recallGraphEdgesEach {
			edges = edges[:recallGraphEdgesEach]
		}
		for _, edge := range edges {
			target := names[edge.TargetID]
			if target == "" {
				if t, err := r.graph.GetEntity(ctx, scope, edge.TargetID); err == nil {
					target = t.Name
					names[t.ID] = t.Name
				} else {
					target = edge.TargetID
				}
			}
			fmt.Fprintf(&sb, "    -[%s]-> %s\n", edge.RelationType, target)
		}
	}
	sb.WriteString("</knowledge-graph>")
	return sb.String()
}

// renderRecentUpdates lists the five most recently written slots across
// all tiers.
func (r *AutoRecall) renderRecentUpdates(all []domain.Slot) string {
	recent := make([]domain.Slot, 0, len(all))
	for _, s := range all {
		if !domain.IsInternalKey(s.Key) {
			recent = append(recent, s)
		}
	}
	if len(recent) == 0 {
		return ""
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].UpdatedAt.After(recent[j].UpdatedAt) })
	if len(recent) > recallRecentSlots {
		recent = recent[:recallRecentSlots]
	}

	var sb strings.Builder
	sb.WriteString("<recent-updates>\n")
	for _, s := range recent {
		fmt.Fprintf(&sb, "  %s = %s\n", s.Key, compactValue(s.Value))
	}
	sb.WriteString("</recent-updates>")
	return sb.String()
}

// renderSemantic searches the agent's namespaces with the latest user
// message. Any failure leaves the section empty.
func (r *AutoRecall) renderSemantic(ctx context.Context, scope domain.Scope, messages []domain.Message) string {
	query := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			query = strings.TrimSpace(messages[i].Text())
			break
		}
	}
	if query == "" {
		return ""
	}

	filter := NewNoiseFilter(scope.Agent)
	hits, err := r.memories.Search(ctx, SearchParams{
		Query:      query,
		Limit:      recallSemanticLimit,
		Namespaces: filter.Namespaces(),
		UserID:     scope.User,
		MinScore:   recallSemanticMinScore,
	})
	if err != nil {
		r.logger.Debug("recall: semantic search failed", zap.Error(err))
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<semantic-memories>\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "  - %s\n", truncateValue(h.PayloadString(domain.PayloadText)))
	}
	sb.WriteString("</semantic-memories>")
	return sb.String()
}

func compactValue(v any) string {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			text = fmt.Sprintf("%v", val)
		} else {
			text = string(b)
		}
	}
	return truncateValue(text)
}

// truncateValue caps a rendered value, cutting on a rune boundary so
// the block stays valid UTF-8.
func truncateValue(text string) string {
	if len(text) <= recallValueMaxLen {
		return text
	}
	cut := recallValueMaxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
