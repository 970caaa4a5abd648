package domain

import (
	"testing"
	"time"
)

func TestParseSessionID(t *testing.T) {
	cases := map[string]Scope{
		"assistant:channel-7":  {User: DefaultUser, Agent: "assistant"},
		"trader:main":          {User: DefaultUser, Agent: "trader"},
		"scrum":                {User: DefaultUser, Agent: "scrum"},
		"fullstack:a:b:c":      {User: DefaultUser, Agent: "fullstack"},
		"":                     {User: DefaultUser, Agent: "assistant"},
		":orphaned-channel":    {User: DefaultUser, Agent: "assistant"},
		"  spaced  :whatever":  {User: DefaultUser, Agent: "spaced"},
	}
	for sessionID, want := range cases {
		if got := ParseSessionID(sessionID); got != want {
			t.Errorf("ParseSessionID(%q) = %+v, want %+v", sessionID, got, want)
		}
	}
}

func TestScope_ForTier(t *testing.T) {
	private := Scope{User: DefaultUser, Agent: "assistant"}

	if got := private.ForTier(TierPrivate); got != private {
		t.Errorf("private tier changed scope: %+v", got)
	}
	if got := private.ForTier(TierTeam); got.Agent != TeamAgent || got.User != DefaultUser {
		t.Errorf("unexpected team scope: %+v", got)
	}
	if got := private.ForTier(TierPublic); got.User != PublicUser || got.Agent != PublicAgent {
		t.Errorf("unexpected public scope: %+v", got)
	}
}

func TestScope_MergeOrder(t *testing.T) {
	order := Scope{User: DefaultUser, Agent: "assistant"}.MergeOrder()

	if len(order) != 3 {
		t.Fatalf("expected 3 scopes, got %d", len(order))
	}
	if order[0].Agent != "assistant" {
		t.Errorf("private must come first, got %+v", order[0])
	}
	if order[1].Agent != TeamAgent {
		t.Errorf("team must come second, got %+v", order[1])
	}
	if order[2].User != PublicUser {
		t.Errorf("public must come last, got %+v", order[2])
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range []string{"private", "team", "public", "all"} {
		if !ValidTier(tier) {
			t.Errorf("ValidTier(%q) = false", tier)
		}
	}
	for _, tier := range []string{"", "galactic", "Private"} {
		if ValidTier(tier) {
			t.Errorf("ValidTier(%q) = true", tier)
		}
	}
}

func TestValidDirection(t *testing.T) {
	for _, d := range []string{"outgoing", "incoming", "both"} {
		if !ValidDirection(d) {
			t.Errorf("ValidDirection(%q) = false", d)
		}
	}
	if ValidDirection("sideways") {
		t.Error(`ValidDirection("sideways") = true`)
	}
}

func TestSlotExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&Slot{}).Expired(now) {
		t.Error("slot without TTL must never expire")
	}
	if !(&Slot{ExpiresAt: &past}).Expired(now) {
		t.Error("elapsed TTL must report expired")
	}
	if (&Slot{ExpiresAt: &future}).Expired(now) {
		t.Error("future TTL must not report expired")
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]string{
		"profile.name":        "profile",
		"preferences.editor":  "preferences",
		"project.deadline":    "project",
		"environment.branch":  "environment",
		"session.token":       CategoryCustom,
		"no_dots":             CategoryCustom,
	}
	for key, want := range cases {
		if got := InferCategory(key); got != want {
			t.Errorf("InferCategory(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestIsInternalKey(t *testing.T) {
	if !IsInternalKey("_meta") {
		t.Error("leading underscore must be internal")
	}
	if IsInternalKey("profile.name") {
		t.Error("regular keys are not internal")
	}
}
