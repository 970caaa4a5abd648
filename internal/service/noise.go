package service

import (
	"regexp"

	"github.com/mrctran/mnemo/internal/domain"
)

// TraderAgent captures trading content only through explicit tool
// calls; its auto-captured text is routed to general decisions and its
// trading-signal chatter is skipped entirely.
const TraderAgent = "trader"

// blockedAgents never participate in auto-capture.
var blockedAgents = map[string]bool{
	"system":    true,
	"heartbeat": true,
}

// generalNoisePatterns match conversation turns with no memory value.
var generalNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(ok(ay)?|yes|no|sure|thanks?|thank you|got it|done|cool|nice)\s*[.!]?\s*$`),
	regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good (morning|afternoon|evening)|bye|goodbye)\s*[.!,]?\s*$`),
	regexp.MustCompile(`(?i)\bheartbeat\b.*\bno action\b`),
	regexp.MustCompile(`^\s*$`),
}

// tradingSignalPatterns match live trading chatter. Applied only to the
// trader agent; other agents may legitimately discuss these terms.
var tradingSignalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(long|short)\s+(btc|eth|sol|[a-z]{2,6}/usdt?)\b`),
	regexp.MustCompile(`(?i)\b(buy|sell)\s+signal\b`),
	regexp.MustCompile(`(?i)\b(take\s*profit|stop\s*loss|tp|sl)\s*[:@]?\s*\$?\d`),
	regexp.MustCompile(`(?i)\bentry\s*[:@]\s*\$?\d`),
	regexp.MustCompile(`(?i)\bliquidat(ed|ion)\b`),
}

// agentNamespaces is the ordered namespace search list per agent; the
// first entry is the auto-capture default.
var agentNamespaces = map[string][]domain.Namespace{
	"assistant": {domain.NamespaceDecisions, domain.NamespaceUserProfile},
	"scrum":     {domain.NamespaceDecisions, domain.NamespaceProjectContext},
	"fullstack": {domain.NamespaceDecisions, domain.NamespaceProjectContext},
	"creator":   {domain.NamespaceDecisions, domain.NamespaceProjectContext},
	TraderAgent: {domain.NamespaceTradingSignals, domain.NamespaceDecisions},
}

var defaultNamespaces = []domain.Namespace{domain.NamespaceDecisions}

// NoiseFilter decides, per agent, what auto-capture should ignore and
// where captured memories go.
type NoiseFilter struct {
	agent string
}

func NewNoiseFilter(agent string) *NoiseFilter {
	return &NoiseFilter{agent: agent}
}

// IsBlocked reports whether the agent is excluded from capture.
func (f *NoiseFilter) IsBlocked() bool {
	return blockedAgents[f.agent]
}

// ShouldSkip reports whether the text matches a noise pattern. The
// trader agent additionally skips trading-signal content.
func (f *NoiseFilter) ShouldSkip(text string) bool {
	for _, p := range generalNoisePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	if f.agent == TraderAgent {
		for _, p := range tradingSignalPatterns {
			if p.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// Namespaces returns the agent's ordered namespace search list.
func (f *NoiseFilter) Namespaces() []domain.Namespace {
	if ns, ok := agentNamespaces[f.agent]; ok {
		return ns
	}
	return defaultNamespaces
}

// TargetNamespace is the default destination for auto-captured
// memories. The trader agent always routes to general decisions.
func (f *NoiseFilter) TargetNamespace() domain.Namespace {
	if f.agent == TraderAgent {
		return domain.NamespaceDecisions
	}
	return f.Namespaces()[0]
}

// ResolveNamespace picks the write namespace for one extracted memory:
// a valid requested namespace wins except for the trader agent, which
// always captures to the decisions namespace.
func (f *NoiseFilter) ResolveNamespace(requested string) domain.Namespace {
	if f.agent == TraderAgent {
		return domain.NamespaceDecisions
	}
	if domain.ValidNamespace(requested) {
		return domain.Namespace(requested)
	}
	return f.TargetNamespace()
}
