package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
	"callrounded-manager/pkg/metrics"
)

// Repository receives the rows pulled from the platform.
type Repository interface {
	GetAgentByID(ctx context.Context, id string) (*store.Agent, error)
	UpsertAgent(ctx context.Context, a store.Agent) error
	GetCallByID(ctx context.Context, id string) (*store.Call, error)
	UpsertCall(ctx context.Context, c store.Call) error
	GetPhoneNumberByID(ctx context.Context, id string) (*store.PhoneNumber, error)
	UpsertPhoneNumber(ctx context.Context, p store.PhoneNumber) error
	GetKnowledgeBaseByID(ctx context.Context, id string) (*store.KnowledgeBase, error)
	UpsertKnowledgeBase(ctx context.Context, kb store.KnowledgeBase) error
	UpsertKnowledgeBaseSource(ctx context.Context, src store.KnowledgeBaseSource) error
}

// Notifier is told about calls that were missed.
type Notifier interface {
	CallMissed(ctx context.Context, c store.Call) (store.Event, error)
}

type Syncer struct {
	provider Provider
	repo     Repository
	notify   Notifier

	PageSize int
	MaxPages int
}

func NewSyncer(p Provider, repo Repository, n Notifier) *Syncer {
	return &Syncer{provider: p, repo: repo, notify: n, PageSize: 100, MaxPages: 10}
}

// errForeign marks a platform record already stored for another account.
var errForeign = errors.New("platform: record owned by another account")

// SyncResult counts what one Sync run wrote. Warnings lists platform calls
// that failed; those sections are skipped rather than aborting the run.
// Skipped counts records that already belong to another account: a platform
// account maps to exactly one tenant and is never moved by a sync.
type SyncResult struct {
	Agents         int      `json:"agents"`
	Calls          int      `json:"calls"`
	PhoneNumbers   int      `json:"phone_numbers"`
	KnowledgeBases int      `json:"knowledge_bases"`
	MissedEvents   int      `json:"missed_events"`
	Skipped        int      `json:"skipped"`
	Warnings       []string `json:"warnings"`
}

// Sync pulls agents, calls, phone numbers and knowledge bases for userID.
// Running it twice writes the same rows and emits no new missed-call events.
func (s *Syncer) Sync(ctx context.Context, userID uint) (SyncResult, error) {
	res := SyncResult{Warnings: []string{}}
	if userID == 0 {
		return res, errors.New("platform: sync needs a user")
	}
	if s.provider == nil || !s.provider.Enabled() {
		return res, ErrNotConfigured
	}
	log := logger.From(ctx).With("user_id", userID)
	warn := func(section string, err error) {
		log.Warn("platform sync section failed", "section", section, "err", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", section, err))
	}

	owners := map[string]uint{}
	foreignAgent := func(id string) (bool, error) {
		owner, ok := owners[id]
		if !ok {
			a, err := s.repo.GetAgentByID(ctx, id)
			if err != nil {
				return false, err
			}
			if a != nil {
				owner = a.UserID
			}
			owners[id] = owner
		}
		return owner != 0 && owner != userID, nil
	}

	agents, err := s.provider.ListAgents(ctx)
	if err != nil {
		warn("agents", err)
	}
	for _, a := range agents {
		foreign, err := foreignAgent(string(a.ID))
		if err != nil {
			return res, err
		}
		if foreign {
			res.Skipped++
			continue
		}
		if err := s.repo.UpsertAgent(ctx, toAgent(userID, a)); err != nil {
			return res, err
		}
		owners[string(a.ID)] = userID
		res.Agents++
		metrics.SyncedRecordsTotal.WithLabelValues("agent").Inc()

		for _, kbID := range a.KnowledgeBaseIDs {
			kb, err := s.provider.GetKnowledgeBase(ctx, string(kbID))
			if err != nil {
				warn("knowledge_base "+string(kbID), err)
				continue
			}
			err = s.syncKnowledgeBase(ctx, userID, string(a.ID), kb)
			if errors.Is(err, errForeign) {
				res.Skipped++
				continue
			}
			if err != nil {
				return res, err
			}
			res.KnowledgeBases++
		}
	}

	var seen []Call
	for page := 1; page <= s.MaxPages; page++ {
		p, err := s.provider.ListCalls(ctx, s.PageSize, page)
		if err != nil {
			warn("calls", err)
			break
		}
		for _, pc := range p.Data {
			c, ok := toCall(userID, pc)
			if !ok {
				log.Debug("platform call skipped", "call_id", pc.ID)
				continue
			}
			foreign, err := foreignAgent(c.AgentID)
			if err != nil {
				return res, err
			}
			if foreign {
				res.Skipped++
				continue
			}
			emitted, err := s.upsertCall(ctx, c)
			if errors.Is(err, errForeign) {
				res.Skipped++
				continue
			}
			if err != nil {
				return res, err
			}
			res.Calls++
			if emitted {
				res.MissedEvents++
			}
			seen = append(seen, pc)
		}
		if len(p.Data) < s.PageSize || (p.TotalItems > 0 && page*s.PageSize >= p.TotalItems) {
			break
		}
	}

	numbers, err := s.provider.ListPhoneNumbers(ctx, 100)
	if err != nil {
		warn("phone_numbers", err)
		numbers = numbersFromCalls(seen)
	}
	for _, n := range numbers {
		p, ok := toPhoneNumber(userID, n)
		if !ok {
			continue
		}
		prev, err := s.repo.GetPhoneNumberByID(ctx, p.ID)
		if err != nil {
			return res, err
		}
		if prev != nil && prev.UserID != userID {
			res.Skipped++
			continue
		}
		if err := s.repo.UpsertPhoneNumber(ctx, p); err != nil {
			return res, err
		}
		res.PhoneNumbers++
		metrics.SyncedRecordsTotal.WithLabelValues("phone_number").Inc()
	}

	if res.Skipped > 0 {
		log.Warn("platform records belong to another account", "skipped", res.Skipped)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d records already belong to another account and were skipped", res.Skipped))
	}
	log.Info("platform sync finished",
		"agents", res.Agents, "calls", res.Calls, "phone_numbers", res.PhoneNumbers,
		"knowledge_bases", res.KnowledgeBases, "missed_events", res.MissedEvents, "skipped", res.Skipped)
	return res, nil
}

// upsertCall stores c and reports whether a missed-call event was emitted.
func (s *Syncer) upsertCall(ctx context.Context, c store.Call) (bool, error) {
	prev, err := s.repo.GetCallByID(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if prev != nil && prev.UserID != c.UserID {
		return false, errForeign
	}
	if err := s.repo.UpsertCall(ctx, c); err != nil {
		return false, err
	}
	metrics.SyncedRecordsTotal.WithLabelValues("call").Inc()

	newlyMissed := c.Status == store.CallMissed && (prev == nil || prev.Status != store.CallMissed)
	if !newlyMissed || s.notify == nil {
		return false, nil
	}
	if _, err := s.notify.CallMissed(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Syncer) syncKnowledgeBase(ctx context.Context, userID uint, agentID string, kb *KnowledgeBase) error {
	prev, err := s.repo.GetKnowledgeBaseByID(ctx, string(kb.ID))
	if err != nil {
		return err
	}
	if prev != nil && prev.UserID != userID {
		return errForeign
	}
	name := kb.Name
	if name == "" {
		name = "Knowledge base " + string(kb.ID)
	}
	if err := s.repo.UpsertKnowledgeBase(ctx, store.KnowledgeBase{
		ID:                      string(kb.ID),
		UserID:                  userID,
		AgentID:                 &agentID,
		ExternalKnowledgeBaseID: string(kb.ID),
		Name:                    truncate(name, 255),
		Description:             kb.Description,
		SourceCount:             len(kb.Sources),
	}); err != nil {
		return err
	}
	metrics.SyncedRecordsTotal.WithLabelValues("knowledge_base").Inc()
	for _, src := range kb.Sources {
		fileName := src.FileName
		if fileName == "" {
			fileName = src.Name
		}
		if err := s.repo.UpsertKnowledgeBaseSource(ctx, store.KnowledgeBaseSource{
			ID:               string(src.ID),
			KnowledgeBaseID:  string(kb.ID),
			ExternalSourceID: string(src.ID),
			FileName:         truncate(fileName, 255),
			FileURL:          src.URL,
			Type:             sourceType(src.Type),
			Status:           sourceStatus(src.Status),
		}); err != nil {
			return err
		}
	}
	return nil
}

func toAgent(userID uint, a Agent) store.Agent {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "Agent " + string(a.ID)
	}
	return store.Agent{
		ID:          string(a.ID),
		UserID:      userID,
		Name:        truncate(name, 255),
		Status:      agentStatus(a.Status),
		ExternalID:  string(a.ID),
		Description: a.Description,
	}
}

func toCall(userID uint, c Call) (store.Call, bool) {
	if c.ID == "" || c.AgentID == "" {
		return store.Call{}, false
	}
	transcription := c.TranscriptString
	if t := bytes.TrimSpace(c.Transcript); len(t) > 0 && t[0] == '[' {
		transcription = string(t)
	}
	cost := c.Cost
	if cost < 0 {
		cost = 0
	}
	return store.Call{
		ID:             string(c.ID),
		UserID:         userID,
		AgentID:        string(c.AgentID),
		ExternalCallID: string(c.ID),
		CallerNumber:   truncate(c.FromNumber, 20),
		Duration:       int(math.Max(0, math.Round(c.DurationSeconds))),
		Status:         callStatus(c.Status, !c.EndTime.IsZero()),
		Transcription:  transcription,
		RecordingURL:   c.RecordingURL,
		Summary:        c.TranscriptString,
		Cost:           cost,
		StartedAt:      c.StartTime.Ptr(),
		EndedAt:        c.EndTime.Ptr(),
	}, true
}

func toPhoneNumber(userID uint, n PhoneNumber) (store.PhoneNumber, bool) {
	number := strings.TrimSpace(n.Number)
	if number == "" {
		return store.PhoneNumber{}, false
	}
	id := string(n.ID)
	if id == "" {
		id = number
	}
	out := store.PhoneNumber{
		ID:                    id,
		UserID:                userID,
		ExternalPhoneNumberID: string(n.ID),
		Number:                truncate(number, 20),
		Status:                store.PhoneNumberActive,
	}
	if strings.EqualFold(n.Status, "inactive") || strings.EqualFold(n.Status, "disabled") {
		out.Status = store.PhoneNumberInactive
	}
	if n.AgentID != "" {
		agentID := string(n.AgentID)
		out.AgentID = &agentID
	}
	return out, true
}

// numbersFromCalls derives the tenant's numbers from the dialled side of its calls.
func numbersFromCalls(calls []Call) []PhoneNumber {
	seen := map[string]bool{}
	out := []PhoneNumber{}
	for _, c := range calls {
		if c.ToNumber == "" || seen[c.ToNumber] {
			continue
		}
		seen[c.ToNumber] = true
		out = append(out, PhoneNumber{Number: c.ToNumber, AgentID: c.AgentID, Status: "active"})
	}
	return out
}

func agentStatus(s string) store.AgentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "deployed", "live":
		return store.AgentActive
	case "paused":
		return store.AgentPaused
	default:
		return store.AgentInactive
	}
}

func callStatus(s string, ended bool) store.CallStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "ended", "done", "success":
		return store.CallCompleted
	case "missed", "no_answer", "no-answer", "unanswered", "busy":
		return store.CallMissed
	case "failed", "error":
		return store.CallFailed
	case "ongoing", "in_progress", "in-progress", "ringing", "queued":
		return store.CallOngoing
	}
	if ended {
		return store.CallCompleted
	}
	return store.CallOngoing
}

func sourceType(s string) store.SourceType {
	switch strings.ToLower(s) {
	case "url", "website", "web":
		return store.SourceURL
	case "text", "faq":
		return store.SourceText
	default:
		return store.SourceFile
	}
}

func sourceStatus(s string) store.SourceStatus {
	switch strings.ToLower(s) {
	case "ready", "done", "completed", "indexed":
		return store.SourceReady
	case "failed", "error":
		return store.SourceFailed
	default:
		return store.SourceIngesting
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
