package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseEnvelope defensively decodes model output into a raw plan envelope.
// It strips code fences, locates the outermost JSON object and decodes it.
// Array-shaped output is rejected so the caller can degrade to a reply-only
// plan.
func ParseEnvelope(response string) (*RawEnvelope, error) {
	cleaned := stripFences(response)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	arrStart := strings.Index(cleaned, "[")

	if start == -1 || end == -1 || end < start {
		if arrStart != -1 {
			return nil, fmt.Errorf("array-shaped response")
		}
		return nil, fmt.Errorf("no JSON object in response")
	}
	if arrStart != -1 && arrStart < start {
		return nil, fmt.Errorf("array-shaped response")
	}

	var env RawEnvelope
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &env); err != nil {
		return nil, fmt.Errorf("decode plan envelope: %w", err)
	}
	return &env, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
