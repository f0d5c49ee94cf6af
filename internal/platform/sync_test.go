package platform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/store"
)

type fakeProvider struct {
	agents  []Agent
	calls   []Call
	numbers []PhoneNumber
	kbs     map[string]*KnowledgeBase
	numErr  error
}

func (f *fakeProvider) Enabled() bool { return true }
func (f *fakeProvider) GetAgent(ctx context.Context, id string) (*Agent, error) {
	for _, a := range f.agents {
		if string(a.ID) == id {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}
func (f *fakeProvider) ListAgents(ctx context.Context) ([]Agent, error) { return f.agents, nil }
func (f *fakeProvider) CreateAgent(ctx context.Context, in AgentCreate) (*Agent, error) {
	return &Agent{ID: "new", Name: in.Name}, nil
}
func (f *fakeProvider) UpdateAgent(ctx context.Context, id string, in AgentUpdate) (*Agent, error) {
	return f.GetAgent(ctx, id)
}
func (f *fakeProvider) ListCalls(ctx context.Context, limit, page int) (*CallPage, error) {
	start := (page - 1) * limit
	if start >= len(f.calls) {
		return &CallPage{Data: []Call{}, TotalItems: len(f.calls)}, nil
	}
	end := start + limit
	if end > len(f.calls) {
		end = len(f.calls)
	}
	return &CallPage{Data: f.calls[start:end], TotalItems: len(f.calls)}, nil
}
func (f *fakeProvider) GetCall(ctx context.Context, id string) (*Call, error) {
	return nil, ErrNotFound
}
func (f *fakeProvider) ListPhoneNumbers(ctx context.Context, limit int) ([]PhoneNumber, error) {
	if f.numErr != nil {
		return nil, f.numErr
	}
	return f.numbers, nil
}
func (f *fakeProvider) GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	if kb, ok := f.kbs[id]; ok {
		return kb, nil
	}
	return nil, ErrNotFound
}

func ts(h int) Timestamp { return Timestamp{time.Date(2026, 10, 14, h, 0, 0, 0, time.UTC)} }

func newSyncFixture(t *testing.T) (*fakeProvider, *store.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.OpenConfig{URL: "sqlite::memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, db))
	t.Cleanup(func() { _ = store.Close(db) })

	p := &fakeProvider{
		agents: []Agent{{ID: "42", Name: "Sonia", Status: "active", KnowledgeBaseIDs: []ID{"kb1", "gone"}}},
		calls: []Call{
			{ID: "c1", AgentID: "42", FromNumber: "+33611111111", ToNumber: "+33100000000", Status: "completed", StartTime: ts(9), EndTime: ts(10), DurationSeconds: 61.4, Cost: 0.3,
				Transcript: json.RawMessage(`[{"role":"agent","content":"Bonjour"}]`)},
			{ID: "c2", AgentID: "42", FromNumber: "+33622222222", ToNumber: "+33100000000", Status: "no_answer", StartTime: ts(11)},
			{ID: "c3", AgentID: "", Status: "completed"},
		},
		numbers: []PhoneNumber{{ID: "n1", Number: "+33100000000", AgentID: "42", Status: "active"}},
		kbs: map[string]*KnowledgeBase{
			"kb1": {ID: "kb1", Name: "Salon", Sources: []KnowledgeBaseSource{{ID: "s1", Name: "tarifs.pdf", Type: "file", Status: "ready"}}},
		},
	}
	return p, store.New(db)
}

func TestSync_UpsertsAndEmitsMissedOnce(t *testing.T) {
	p, s := newSyncFixture(t)
	ctx := context.Background()
	syncer := NewSyncer(p, s, notify.NewService(s))
	syncer.PageSize = 2

	res, err := syncer.Sync(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Agents)
	assert.Equal(t, 2, res.Calls)
	assert.Equal(t, 1, res.PhoneNumbers)
	assert.Equal(t, 1, res.KnowledgeBases)
	assert.Equal(t, 1, res.MissedEvents)
	assert.Len(t, res.Warnings, 1, "missing knowledge base is reported")

	agent, err := s.GetAgentForUser(ctx, 1, "42")
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, store.AgentActive, agent.Status)

	c1, err := s.GetCallForUser(ctx, 1, "c1")
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, 61, c1.Duration)
	assert.Equal(t, store.CallCompleted, c1.Status)
	assert.Contains(t, c1.Transcription, "Bonjour")

	c2, err := s.GetCallForUser(ctx, 1, "c2")
	require.NoError(t, err)
	assert.Equal(t, store.CallMissed, c2.Status)

	kb, err := s.GetKnowledgeBaseForUser(ctx, 1, "kb1")
	require.NoError(t, err)
	require.NotNil(t, kb)
	assert.Equal(t, 1, kb.SourceCount)

	again, err := syncer.Sync(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, again.MissedEvents)

	events, err := s.GetUnnotifiedEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventCallMissed, events[0].Type)
	require.NotNil(t, events[0].RelatedCallID)
	assert.Equal(t, "c2", *events[0].RelatedCallID)
}

func TestSync_SkipsRecordsOwnedByAnotherAccount(t *testing.T) {
	p, s := newSyncFixture(t)
	ctx := context.Background()
	syncer := NewSyncer(p, s, notify.NewService(s))

	_, err := syncer.Sync(ctx, 1)
	require.NoError(t, err)

	// a fresh call on the same platform agent must not land in another tenant either
	p.calls = append(p.calls, Call{ID: "c4", AgentID: "42", Status: "completed", StartTime: ts(12), EndTime: ts(13)})
	res, err := syncer.Sync(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Agents)
	assert.Equal(t, 0, res.Calls)
	assert.Equal(t, 0, res.PhoneNumbers)
	assert.Equal(t, 0, res.MissedEvents)
	assert.Equal(t, 5, res.Skipped, "agent, three calls and the phone number")
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "another account")

	agents, err := s.GetAgentsByUserID(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, agents)
	c4, err := s.GetCallByID(ctx, "c4")
	require.NoError(t, err)
	assert.Nil(t, c4)
	n1, err := s.GetPhoneNumberByID(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, n1)
	assert.Equal(t, uint(1), n1.UserID)

	again, err := syncer.Sync(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Skipped)
	assert.Equal(t, 3, again.Calls)
}

func TestSync_DerivesNumbersWhenEndpointMissing(t *testing.T) {
	p, s := newSyncFixture(t)
	p.numErr = ErrNotFound
	ctx := context.Background()

	res, err := NewSyncer(p, s, nil).Sync(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PhoneNumbers)
	assert.Equal(t, 0, res.MissedEvents)

	nums, err := s.GetPhoneNumbersByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, nums, 1)
	assert.Equal(t, "+33100000000", nums[0].Number)
	require.NotNil(t, nums[0].AgentID)
	assert.Equal(t, "42", *nums[0].AgentID)
}

func TestCallStatusMapping(t *testing.T) {
	assert.Equal(t, store.CallMissed, callStatus("busy", false))
	assert.Equal(t, store.CallOngoing, callStatus("in_progress", false))
	assert.Equal(t, store.CallCompleted, callStatus("whatever", true))
	assert.Equal(t, store.CallOngoing, callStatus("", false))
}
