package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID accepts both JSON strings and numbers; the platform uses either.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("platform: id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Timestamp parses RFC 3339 and zone-less ISO 8601 values; the latter are UTC.
type Timestamp struct{ time.Time }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || strings.TrimSpace(s) == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("platform: unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Ptr returns nil for the zero time.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

type Agent struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	Description      string `json:"description"`
	BasePrompt       string `json:"base_prompt"`
	InitialMessage   string `json:"initial_message"`
	Language         string `json:"language"`
	Voice            string `json:"voice,omitempty"`
	KnowledgeBaseIDs []ID   `json:"knowledge_base_ids,omitempty"`
}

// AgentCreate is the payload for a new agent.
type AgentCreate struct {
	Name            string `json:"name" validate:"required,max=255"`
	Description     string `json:"description,omitempty"`
	GreetingMessage string `json:"greeting_message,omitempty"`
	BasePrompt      string `json:"base_prompt,omitempty"`
	Language        string `json:"language,omitempty"`
	Voice           string `json:"voice,omitempty"`
}

// AgentUpdate carries a partial agent change; nil fields are omitted.
type AgentUpdate struct {
	Name           *string `json:"name,omitempty"`
	Status         *string `json:"status,omitempty"`
	BasePrompt     *string `json:"base_prompt,omitempty"`
	InitialMessage *string `json:"initial_message,omitempty"`
}

type Call struct {
	ID               ID              `json:"id"`
	AgentID          ID              `json:"agent_id"`
	FromNumber       string          `json:"from_number"`
	ToNumber         string          `json:"to_number"`
	Direction        string          `json:"direction"`
	Status           string          `json:"status"`
	StartTime        Timestamp       `json:"start_time"`
	EndTime          Timestamp       `json:"end_time"`
	DurationSeconds  float64         `json:"duration_seconds"`
	Cost             float64         `json:"cost"`
	Transcript       json.RawMessage `json:"transcript"`
	TranscriptString string          `json:"transcript_string"`
	RecordingURL     string          `json:"recording_url"`
}

type CallPage struct {
	Data       []Call `json:"data"`
	TotalItems int    `json:"total_items"`
}

type PhoneNumber struct {
	ID      ID     `json:"id"`
	Number  string `json:"number"`
	AgentID ID     `json:"agent_id"`
	Status  string `json:"status"`
}

type KnowledgeBaseSource struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

type KnowledgeBase struct {
	ID          ID                    `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Sources     []KnowledgeBaseSource `json:"sources"`
}
