package calls

import (
	"encoding/json"
	"strings"
)

// Turn is one utterance as stored by the voice platform.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Line is a transcript turn prepared for display.
type Line struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int    `json:"timestamp"`
}

const secondsPerTurn = 5

var hiddenRoles = map[string]struct{}{
	"system":   {},
	"tool":     {},
	"function": {},
	"internal": {},
}

var agentRoles = map[string]struct{}{
	"agent":     {},
	"assistant": {},
	"bot":       {},
}

// ParseTranscript reads a stored transcription. JSON arrays of {role, content}
// are decoded as-is; plain text is split on "role: text" line prefixes, with
// unprefixed lines continuing the previous turn.
func ParseTranscript(raw string) []Turn {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var turns []Turn
		if err := json.Unmarshal([]byte(raw), &turns); err == nil {
			return turns
		}
	}

	var turns []Turn
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if role, text, ok := splitRolePrefix(line); ok {
			turns = append(turns, Turn{Role: role, Content: text})
			continue
		}
		if len(turns) == 0 {
			turns = append(turns, Turn{Role: "user", Content: line})
			continue
		}
		last := &turns[len(turns)-1]
		last.Content = strings.TrimSpace(last.Content + " " + line)
	}
	return turns
}

func splitRolePrefix(line string) (string, string, bool) {
	head, rest, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	role := strings.ToLower(strings.TrimSpace(head))
	switch role {
	case "agent", "assistant", "bot", "user", "caller", "customer", "system", "tool", "function", "internal":
		return role, strings.TrimSpace(rest), true
	default:
		return "", "", false
	}
}

// VisibleLines drops system, tool and internal turns and labels the rest as agent or caller.
// Timestamps approximate five seconds per displayed turn.
func VisibleLines(turns []Turn) []Line {
	out := make([]Line, 0, len(turns))
	for _, t := range turns {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if _, hidden := hiddenRoles[role]; hidden {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		speaker := "caller"
		if _, ok := agentRoles[role]; ok || role == "" {
			speaker = "agent"
		}
		out = append(out, Line{Speaker: speaker, Text: t.Content, Timestamp: len(out) * secondsPerTurn})
	}
	return out
}
