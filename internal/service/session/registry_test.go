package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	modelchat "github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

func TestLoginGetLogout(t *testing.T) {
	reg := session.NewRegistry()
	ctx := context.Background()

	s, err := reg.Login(ctx, " alice ", "anything")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if s.Owner != "alice" {
		t.Fatalf("expected trimmed owner, got %q", s.Owner)
	}
	if s.Persona() != persona.Default {
		t.Fatalf("expected default persona, got %s", s.Persona())
	}

	got, err := reg.Get(ctx, s.ID)
	if err != nil || got != s {
		t.Fatalf("Get returned %v, %v", got, err)
	}

	if err := reg.Logout(ctx, s.ID); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if _, err := reg.Get(ctx, s.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := reg.Logout(ctx, s.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("second logout should report missing session, got %v", err)
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	reg := session.NewRegistry()
	for _, pair := range [][2]string{{"", "pw"}, {"alice", ""}, {"  ", "  "}} {
		if _, err := reg.Login(context.Background(), pair[0], pair[1]); !errors.Is(err, session.ErrCredentialsRequired) {
			t.Fatalf("Login(%q, %q) err = %v", pair[0], pair[1], err)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("no session should be created, got %d", reg.Len())
	}
}

func TestSetPersonaRejectsUnknown(t *testing.T) {
	s, _ := session.NewRegistry().Login(context.Background(), "alice", "pw")
	if err := s.SetPersona(persona.Key("pirate")); !errors.Is(err, session.ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}
	if err := s.SetPersona(persona.Executive); err != nil {
		t.Fatalf("SetPersona err: %v", err)
	}
	if s.View().PersonaID != string(persona.Executive) {
		t.Fatalf("view did not reflect persona change")
	}
}

func TestBeginGuardsSingleSubmission(t *testing.T) {
	s, _ := session.NewRegistry().Login(context.Background(), "alice", "pw")

	ticket, ok := s.Begin()
	if !ok {
		t.Fatal("first Begin should be admitted")
	}
	if s.State() != modelchat.StateSubmitting {
		t.Fatalf("expected submitting state, got %s", s.State())
	}
	if _, ok := s.Begin(); ok {
		t.Fatal("second Begin should be rejected while submitting")
	}
	s.Finish(ticket)
	if s.State() != modelchat.StateIdle {
		t.Fatalf("expected idle after Finish, got %s", s.State())
	}
}

func TestResetTwiceLeavesGreetingAndEmptyLedger(t *testing.T) {
	s, _ := session.NewRegistry().Login(context.Background(), "alice", "pw")
	s.Conversation.AppendUser("risk")
	s.Ledger.RecordIfQualifying("risk", rubric.A, "alice", time.Now())

	for i := 0; i < 2; i++ {
		s.Reset()
		turns := s.Conversation.Transcript()
		if len(turns) != 1 || turns[0].Content != modelchat.GreetingText {
			t.Fatalf("reset %d: expected only the greeting, got %d turns", i+1, len(turns))
		}
		if s.Ledger.Len() != 0 {
			t.Fatalf("reset %d: ledger not empty", i+1)
		}
	}
}

func TestResetOrphansInFlightTicket(t *testing.T) {
	s, _ := session.NewRegistry().Login(context.Background(), "alice", "pw")

	stale, _ := s.Begin()
	s.Reset()
	if s.State() != modelchat.StateIdle {
		t.Fatal("reset should release the submitting guard")
	}
	if s.Current(stale) {
		t.Fatal("ticket issued before reset should be stale")
	}

	fresh, ok := s.Begin()
	if !ok {
		t.Fatal("new submission should be admitted after reset")
	}
	s.Finish(stale)
	if s.State() != modelchat.StateSubmitting {
		t.Fatal("stale Finish must not release the new submission")
	}
	s.Finish(fresh)
}
