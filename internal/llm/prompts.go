package llm

import (
	"fmt"
	"strings"
)

// VolatileStatusKeys are the project-status slots the extractor must
// actively invalidate when the conversation shows they went stale.
var VolatileStatusKeys = []string{
	"project.current",
	"project.current_task",
	"project.current_epic",
	"project.phase",
	"project.status",
}

var systemPrompt = fmt.Sprintf(`You are a memory extraction system for a conversational agent. You have three jobs:

1. slot_updates: extract structured facts about the user or their work as dot-notation key/value slots.
2. slot_removals: detect slots in CURRENT STATE that the conversation shows are stale or superseded, and remove them.
3. memories: extract durable free-text facts worth remembering across sessions.

Volatile status keys. These keys describe a moving target and MUST be removed when the conversation indicates the status changed, before any replacement update:
%s

Allowed slot categories: profile, preferences, project, environment, custom.
Allowed memory namespaces: agent_decisions, user_profile, project_context, trading_signals.

Rules:
- Confidence is a number in [0,1]. Only assert what the conversation supports.
- Keys use dot notation, e.g. "profile.name", "project.tech_stack".
- Do not extract greetings, small talk, or transient chatter.

Respond ONLY with JSON, no markdown fences, in exactly this shape:
{"slot_updates":[{"key":"...","value":...,"confidence":0.9,"category":"..."}],"slot_removals":[{"key":"...","reason":"..."}],"memories":[{"text":"...","namespace":"...","confidence":0.9}]}`,
	strings.Join(VolatileStatusKeys, ", "))

const userPromptFormat = `CURRENT STATE (category -> key -> value):
%s

--- CONVERSATION START ---
%s
--- CONVERSATION END ---

Extract slot updates, slot removals, and memories from the conversation above.`
