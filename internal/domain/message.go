package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one conversation turn as delivered by the host runtime.
// Content is untyped: hosts send a plain string, a list of content
// blocks, or a nested object.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Text returns the flattened content of the message.
func (m Message) Text() string {
	return FlattenContent(m.Content)
}

// FlattenContent renders arbitrary message content to plain text.
// Handles strings, block lists (text / tool_use / tool_result / image),
// and nested objects carrying "text" or "content". Unknown shapes are
// JSON-serialised; the result never contains "[object Object]".
func FlattenContent(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, block := range c {
			if s := FlattenContent(block); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		return flattenBlock(c)
	case fmt.Stringer:
		return c.String()
	default:
		return jsonFallback(c)
	}
}

func flattenBlock(block map[string]any) string {
	blockType, _ := block["type"].(string)
	switch blockType {
	case "text":
		if text, ok := block["text"].(string); ok {
			return text
		}
	case "tool_use":
		name, _ := block["name"].(string)
		if name == "" {
			return "[Tool]"
		}
		return "[Tool: " + name + "]"
	case "tool_result":
		return "[Tool Result]"
	case "image", "image_url":
		return "[Image]"
	}

	if text, ok := block["text"].(string); ok {
		return text
	}
	if nested, ok := block["content"]; ok {
		return FlattenContent(nested)
	}
	return jsonFallback(block)
}

func jsonFallback(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
