package coach

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gradeanalysis "github.com/zhouzirui/ruffie/backend/internal/analysis/grade"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/service/ai"
	"github.com/zhouzirui/ruffie/backend/internal/service/events"
	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

// Outcome describes what happened to a submission.
type Outcome string

const (
	// OutcomeIgnored: blank text or a submission already in flight. Nothing was recorded.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeCoached: the model replied; the reply may or may not carry a grade.
	OutcomeCoached Outcome = "coached"
	// OutcomeFailed: the model call failed and a diagnostic turn was recorded.
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded: the session was cleared while the model call was in flight.
	OutcomeDiscarded Outcome = "discarded"
)

// Result reports the turns and ledger entry produced by one submission.
type Result struct {
	Outcome  Outcome       `json:"outcome"`
	UserTurn *chat.Turn    `json:"userTurn,omitempty"`
	Reply    *chat.Turn    `json:"reply,omitempty"`
	Entry    *ledger.Entry `json:"entry,omitempty"`
}

// FailureTemplate formats the diagnostic turn recorded when the gateway fails.
const FailureTemplate = "Sorry, I couldn't get a coaching response this time (%s). Your statement was not graded; please submit it again."

// Service drives a submission through composer, gateway and grade extractor and
// records the results on the session.
type Service struct {
	composer  *ai.Composer
	gateway   ai.Gateway
	publisher events.Publisher
	now       func() time.Time
}

// NewService wires the orchestrator. publisher may be nil.
func NewService(composer *ai.Composer, gateway ai.Gateway, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		composer:  composer,
		gateway:   gateway,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit coaches one risk statement.
func (s *Service) Submit(ctx context.Context, sess *session.Session, text string) Result {
	return s.SubmitWithObserver(ctx, sess, text, nil)
}

// SubmitWithObserver is Submit with a callback invoked as soon as the user turn
// is recorded, before the model is called.
func (s *Service) SubmitWithObserver(ctx context.Context, sess *session.Session, text string, onAccepted func(chat.Turn)) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeIgnored}
	}

	ticket, ok := sess.Begin()
	if !ok {
		return Result{Outcome: OutcomeIgnored}
	}
	defer sess.Finish(ticket)

	// The composer appends the submission itself, so history is captured first.
	history := sess.Conversation.Transcript()
	userTurn := sess.Conversation.AppendUser(text)
	if onAccepted != nil {
		onAccepted(userTurn)
	}

	// Once sent, a request runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	raw, err := s.send(ctx, text, history, ticket)
	if !sess.Current(ticket) {
		log.Printf("[coach] session=%s cleared during submission, dropping reply", sess.ID)
		return Result{Outcome: OutcomeDiscarded, UserTurn: &userTurn}
	}

	if err != nil {
		log.Printf("[coach] gateway failed for session=%s: %v", sess.ID, err)
		reply := sess.Conversation.AppendAssistant(FailureMessage(err), nil)
		return Result{Outcome: OutcomeFailed, UserTurn: &userTurn, Reply: &reply}
	}

	grade := gradeanalysis.ExtractPointer(raw)
	reply := sess.Conversation.AppendAssistant(raw, grade)
	result := Result{Outcome: OutcomeCoached, UserTurn: &userTurn, Reply: &reply}

	if grade == nil {
		log.Printf("[coach] session=%s reply carried no grade", sess.ID)
		return result
	}

	if entry, recorded := sess.Ledger.RecordIfQualifying(text, *grade, sess.Owner, s.now()); recorded {
		result.Entry = &entry
		if err := s.publisher.RiskQualified(events.RiskQualified{SessionID: sess.ID, Entry: entry}); err != nil {
			log.Printf("[coach] failed to publish qualified risk: %v", err)
		}
	}

	log.Printf("[coach] session=%s persona=%s grade=%s ledger=%d", sess.ID, ticket.Persona, *grade, sess.Ledger.Len())
	return result
}

func (s *Service) send(ctx context.Context, text string, history []chat.Turn, ticket session.Ticket) (string, error) {
	messages, err := s.composer.Compose(ctx, text, history, ticket.Persona)
	if err != nil {
		return "", err
	}
	return s.gateway.Send(ctx, messages)
}

// FailureMessage renders the diagnostic turn for err.
func FailureMessage(err error) string {
	return fmt.Sprintf(FailureTemplate, err.Error())
}

// Clear resets the session to its greeting and an empty ledger.
func (s *Service) Clear(sess *session.Session) {
	sess.Reset()
	s.publishCleared(sess, "clear")
}

// Ended announces a session discarded by logout.
func (s *Service) Ended(sess *session.Session) {
	s.publishCleared(sess, "logout")
}

func (s *Service) publishCleared(sess *session.Session, reason string) {
	event := events.SessionCleared{
		SessionID: sess.ID,
		Owner:     sess.Owner,
		Reason:    reason,
		Timestamp: s.now(),
	}
	if err := s.publisher.SessionCleared(event); err != nil {
		log.Printf("[coach] failed to publish session reset: %v", err)
	}
}
