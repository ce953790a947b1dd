package events

import (
	"time"

	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectRiskQualified  = "risk.qualified"
	SubjectSessionCleared = "session.cleared"
)

// RiskQualified is emitted when a submission lands in a session ledger.
type RiskQualified struct {
	SessionID string       `json:"session_id"`
	Entry     ledger.Entry `json:"entry"`
}

// SessionCleared is emitted when a session is reset or logged out.
type SessionCleared struct {
	SessionID string    `json:"session_id"`
	Owner     string    `json:"owner"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans session events out to other systems. Publishing is
// best-effort; callers log failures and carry on.
type Publisher interface {
	RiskQualified(event RiskQualified) error
	SessionCleared(event SessionCleared) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) RiskQualified(RiskQualified) error   { return nil }
func (Nop) SessionCleared(SessionCleared) error { return nil }
