package calls

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"callrounded-manager/internal/store"
)

// Repository is the slice of the store the call views need. Every method is
// scoped to what the user may see: their own rows plus assigned agents.
type Repository interface {
	GetCallsByUserID(ctx context.Context, userID uint, f store.CallFilter) ([]store.Call, int64, error)
	GetAccessibleCall(ctx context.Context, userID uint, id string) (*store.Call, error)
	GetAccessibleAgents(ctx context.Context, userID uint) ([]store.Agent, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Filter holds the optional listing filters accepted by the HTTP layer.
type Filter struct {
	Status  store.CallStatus
	AgentID string
	From    *time.Time
	To      *time.Time
	Caller  string
}

func (f Filter) storeFilter(p Page) store.CallFilter {
	return store.CallFilter{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Status:  f.Status,
		AgentID: f.AgentID,
		From:    f.From,
		To:      f.To,
		Caller:  f.Caller,
		Shared:  true,
	}
}

// Summary is the list projection of a call; the transcription is left for the detail view.
type Summary struct {
	ID           string           `json:"id"`
	AgentID      string           `json:"agent_id"`
	CallerNumber string           `json:"caller_number"`
	Status       store.CallStatus `json:"status"`
	Duration     int              `json:"duration_seconds"`
	Cost         float64          `json:"cost"`
	HasRecording bool             `json:"has_recording"`
	StartedAt    *time.Time       `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at"`
}

func (s *Service) List(ctx context.Context, userID uint, p Page, f Filter) (ListResponse[Summary], error) {
	rows, total, err := s.repo.GetCallsByUserID(ctx, userID, f.storeFilter(p))
	if err != nil {
		return ListResponse[Summary]{}, err
	}
	out := make([]Summary, 0, len(rows))
	for _, c := range rows {
		out = append(out, Summary{
			ID:           c.ID,
			AgentID:      c.AgentID,
			CallerNumber: c.CallerNumber,
			Status:       c.Status,
			Duration:     c.Duration,
			Cost:         c.Cost,
			HasRecording: c.RecordingURL != "",
			StartedAt:    c.StartedAt,
			EndedAt:      c.EndedAt,
		})
	}
	return NewListResponse(out, total, p), nil
}

// Rich is the detail projection with agent name and display transcript.
type Rich struct {
	ID           string           `json:"id"`
	ExternalID   string           `json:"external_id"`
	AgentID      string           `json:"agent_id"`
	AgentName    string           `json:"agent_name"`
	CallerNumber string           `json:"caller_number"`
	Direction    string           `json:"direction"`
	Status       store.CallStatus `json:"status"`
	Duration     int              `json:"duration_seconds"`
	StartedAt    *time.Time       `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at"`
	Transcript   []Line           `json:"transcript"`
	Summary      string           `json:"summary,omitempty"`
	RecordingURL string           `json:"recording_url,omitempty"`
	Cost         float64          `json:"cost"`
}

func toRich(c store.Call, agentNames map[string]string) Rich {
	name := agentNames[c.AgentID]
	if name == "" {
		name = "Unknown agent"
	}
	return Rich{
		ID:           c.ID,
		ExternalID:   c.ExternalCallID,
		AgentID:      c.AgentID,
		AgentName:    name,
		CallerNumber: c.CallerNumber,
		Direction:    "inbound",
		Status:       c.Status,
		Duration:     c.Duration,
		StartedAt:    c.StartedAt,
		EndedAt:      c.EndedAt,
		Transcript:   VisibleLines(ParseTranscript(c.Transcription)),
		Summary:      c.Summary,
		RecordingURL: c.RecordingURL,
		Cost:         c.Cost,
	}
}

func (s *Service) agentNames(ctx context.Context, userID uint) (map[string]string, error) {
	agents, err := s.repo.GetAccessibleAgents(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}
	return names, nil
}

// RichList is the envelope of the rich call history.
type RichList struct {
	Calls       []Rich `json:"calls"`
	TotalItems  int64  `json:"total_items"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
}

// ListRich returns one page of calls, newest first, in the detail projection.
func (s *Service) ListRich(ctx context.Context, userID uint, p Page, f Filter) (RichList, error) {
	if p.Limit <= 0 || p.Limit > MaxRichLimit {
		p.Limit = DefaultRichLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	p.Offset = (p.Page - 1) * p.Limit
	rows, total, err := s.repo.GetCallsByUserID(ctx, userID, f.storeFilter(p))
	if err != nil {
		return RichList{}, err
	}
	names, err := s.agentNames(ctx, userID)
	if err != nil {
		return RichList{}, err
	}
	out := make([]Rich, 0, len(rows))
	for _, c := range rows {
		out = append(out, toRich(c, names))
	}
	lr := NewListResponse(out, total, p)
	return RichList{Calls: lr.Data, TotalItems: lr.TotalItems, CurrentPage: lr.CurrentPage, TotalPages: lr.TotalPages}, nil
}

// Detail returns one call of the tenant, or nil when it does not exist for them.
func (s *Service) Detail(ctx context.Context, userID uint, id string) (*Rich, error) {
	c, err := s.repo.GetAccessibleCall(ctx, userID, id)
	if err != nil || c == nil {
		return nil, err
	}
	names, err := s.agentNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := toRich(*c, names)
	return &r, nil
}

var csvHeader = []string{"id", "agent_id", "caller_number", "status", "duration_seconds", "cost", "started_at", "ended_at"}

const exportBatch = MaxLimit

// ExportCSV streams every call matching f to w, newest first.
func (s *Service) ExportCSV(ctx context.Context, userID uint, f Filter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportBatch {
		rows, total, err := s.repo.GetCallsByUserID(ctx, userID, f.storeFilter(Page{Limit: exportBatch, Offset: offset}))
		if err != nil {
			return written, err
		}
		for _, c := range rows {
			if err := cw.Write(csvRecord(c)); err != nil {
				return written, err
			}
			written++
		}
		if len(rows) < exportBatch || int64(offset+len(rows)) >= total {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, errors.Join(errors.New("calls: csv export"), err)
	}
	return written, nil
}

func csvRecord(c store.Call) []string {
	return []string{
		c.ID,
		c.AgentID,
		c.CallerNumber,
		string(c.Status),
		strconv.Itoa(c.Duration),
		strconv.FormatFloat(c.Cost, 'f', 2, 64),
		formatTime(c.StartedAt),
		formatTime(c.EndedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
