package notify

import (
	"context"
	"testing"

	"callrounded-manager/internal/store"
)

func TestService_EmitRequiresUserTypeAndTitle(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Emit(ctx, store.Event{Type: store.EventSystemAlert, Title: "x"}); err == nil {
		t.Fatalf("expected error without user")
	}
	if _, err := svc.Emit(ctx, store.Event{UserID: 1, Type: "bogus", Title: "x"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := svc.Emit(ctx, store.Event{UserID: 1, Type: store.EventSystemAlert}); err == nil {
		t.Fatalf("expected error without title")
	}
}

func TestService_PendingUntilAcknowledged(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	missed, err := svc.CallMissed(ctx, store.Call{ID: "c1", UserID: 1, AgentID: "a1", CallerNumber: "+33600000000"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if missed.RelatedCallID == nil || *missed.RelatedCallID != "c1" {
		t.Fatalf("expected related call captured")
	}
	if _, err := svc.SystemAlert(ctx, 1, "Spike", "5 missed calls"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := svc.SystemAlert(ctx, 2, "Other", "tenant"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	pending, err := svc.Pending(ctx, 1)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d (%v)", len(pending), err)
	}

	ok, err := svc.Acknowledge(ctx, 1, missed.ID)
	if err != nil || !ok {
		t.Fatalf("expected acknowledge to succeed")
	}
	pending, _ = svc.Pending(ctx, 1)
	if len(pending) != 1 || pending[0].Type != store.EventSystemAlert {
		t.Fatalf("expected only the system alert pending, got %+v", pending)
	}

	if ok, _ := svc.Acknowledge(ctx, 2, pending[0].ID); ok {
		t.Fatalf("other tenant must not acknowledge")
	}

	n, err := svc.AcknowledgeAll(ctx, 1)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 acknowledged, got %d (%v)", n, err)
	}
	if _, err := svc.History(ctx, 1, store.EventFilter{Type: "nope"}); err == nil {
		t.Fatalf("expected invalid filter error")
	}
	history, _ := svc.History(ctx, 1, store.EventFilter{})
	if len(history) != 2 {
		t.Fatalf("expected full history, got %d", len(history))
	}
}
