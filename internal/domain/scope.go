package domain

import "strings"

// Reserved scope markers. Everything else in the user position is
// normalised to DefaultUser so ephemeral session ids cannot fragment
// a user's memory across coordinates.
const (
	DefaultUser = "default"
	TeamAgent   = "__team__"
	PublicUser  = "__public__"
	PublicAgent = "__public__"
)

// Tier selects the storage coordinates a slot is written to or read from.
type Tier string

const (
	TierPrivate Tier = "private"
	TierTeam    Tier = "team"
	TierPublic  Tier = "public"
	TierAll     Tier = "all"
)

func ValidTier(t string) bool {
	switch Tier(t) {
	case TierPrivate, TierTeam, TierPublic, TierAll:
		return true
	}
	return false
}

// Scope is a (user, agent) coordinate pair. All structured state is
// partitioned by it.
type Scope struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// ParseSessionID derives the private scope from a host session id of the
// form "<agent>:<channel...>". The user component collapses to DefaultUser
// unless it is one of the reserved markers.
func ParseSessionID(sessionID string) Scope {
	agent := sessionID
	if i := strings.Index(sessionID, ":"); i >= 0 {
		agent = sessionID[:i]
	}
	agent = strings.TrimSpace(agent)
	if agent == "" {
		agent = "assistant"
	}
	return Scope{User: DefaultUser, Agent: agent}
}

// ForTier maps this private scope to the coordinates of the given tier.
func (s Scope) ForTier(t Tier) Scope {
	switch t {
	case TierTeam:
		return Scope{User: s.User, Agent: TeamAgent}
	case TierPublic:
		return Scope{User: PublicUser, Agent: PublicAgent}
	default:
		return s
	}
}

// MergeOrder is the read order for recall: private first, then team,
// then public. Freshness, not position, decides merge conflicts.
func (s Scope) MergeOrder() []Scope {
	return []Scope{s.ForTier(TierPrivate), s.ForTier(TierTeam), s.ForTier(TierPublic)}
}
