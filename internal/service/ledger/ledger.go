package ledger

import (
	"sync"
	"time"

	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
)

// Entry is a risk statement whose coached grade cleared the quality bar.
type Entry struct {
	Sequence    int          `json:"sequence"`
	Statement   string       `json:"statement"`
	Grade       rubric.Grade `json:"grade"`
	SubmittedBy string       `json:"submittedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Ledger accumulates qualifying risks for one session. Entries are never
// edited or removed; only Reset empties the ledger.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// RecordIfQualifying appends an entry when grade is A, A- or B+.
func (l *Ledger) RecordIfQualifying(statement string, grade rubric.Grade, submittedBy string, now time.Time) (Entry, bool) {
	if !grade.Qualifies() {
		return Entry{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Sequence:    len(l.entries) + 1,
		Statement:   statement,
		Grade:       grade,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
	}
	l.entries = append(l.entries, entry)
	return entry, true
}

// Entries returns a copy of the ledger in sequence order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]Entry, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// Len reports the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
