package session

import (
	"sync"
	"time"

	modelchat "github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/service/chat"
	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
)

// Session bundles everything one signed-in user owns: identity, persona,
// transcript and risk ledger.
type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	Conversation *chat.Conversation
	Ledger       *ledger.Ledger

	mu         sync.Mutex
	persona    persona.Key
	submitting bool
	epoch      uint64
}

func newSession(id, owner string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Owner:        owner,
		CreatedAt:    now,
		Conversation: chat.NewConversation(),
		Ledger:       ledger.New(),
		persona:      persona.Default,
	}
}

// Persona returns the active persona.
func (s *Session) Persona() persona.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// SetPersona switches the persona for subsequent submissions.
func (s *Session) SetPersona(key persona.Key) error {
	if !key.Known() {
		return ErrUnknownPersona
	}
	s.mu.Lock()
	s.persona = key
	s.mu.Unlock()
	return nil
}

// State reports whether a submission is in flight.
func (s *Session) State() modelchat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return modelchat.StateSubmitting
	}
	return modelchat.StateIdle
}

// Ticket identifies one admitted submission.
type Ticket struct {
	Epoch   uint64
	Persona persona.Key
}

// Begin moves the session from idle to submitting. It returns false when a
// submission is already in flight.
func (s *Session) Begin() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return Ticket{}, false
	}
	s.submitting = true
	return Ticket{Epoch: s.epoch, Persona: s.persona}, true
}

// Current reports whether the session has not been reset since t was issued.
func (s *Session) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == t.Epoch
}

// Finish returns the session to idle. A ticket issued before a reset is ignored.
func (s *Session) Finish(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == t.Epoch {
		s.submitting = false
	}
}

// Reset clears the transcript back to the greeting and empties the ledger.
// Any submission still in flight is orphaned and its result discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.epoch++
	s.submitting = false
	s.mu.Unlock()

	s.Conversation.Reset()
	s.Ledger.Reset()
}

// View returns the public session summary.
func (s *Session) View() modelchat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := modelchat.StateIdle
	if s.submitting {
		state = modelchat.StateSubmitting
	}
	return modelchat.Session{
		ID:        s.ID,
		Owner:     s.Owner,
		PersonaID: string(s.persona),
		State:     state,
		CreatedAt: s.CreatedAt,
	}
}
