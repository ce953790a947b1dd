package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestRiskQualifiedPublishesJSON(t *testing.T) {
	conn := &recordingConn{}
	p := NewNATSPublisher(conn, "ruffie.")

	entry := ledger.Entry{Sequence: 1, Statement: "risk", Grade: rubric.AMinus, SubmittedBy: "alice", CreatedAt: time.Now().UTC()}
	if err := p.RiskQualified(RiskQualified{SessionID: "s1", Entry: entry}); err != nil {
		t.Fatalf("RiskQualified err: %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != "ruffie.risk.qualified" {
		t.Fatalf("unexpected subjects: %v", conn.subjects)
	}

	var decoded RiskQualified
	if err := json.Unmarshal(conn.payloads[0], &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded.SessionID != "s1" || decoded.Entry.Grade != rubric.AMinus || decoded.Entry.Sequence != 1 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestSessionClearedSubject(t *testing.T) {
	conn := &recordingConn{}
	p := NewNATSPublisher(conn, "")
	if err := p.SessionCleared(SessionCleared{SessionID: "s1", Reason: "clear"}); err != nil {
		t.Fatalf("SessionCleared err: %v", err)
	}
	if conn.subjects[0] != SubjectSessionCleared {
		t.Fatalf("unexpected subject %q", conn.subjects[0])
	}
}

func TestPublishErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	p := NewNATSPublisher(&recordingConn{err: boom}, "ruffie")
	if err := p.SessionCleared(SessionCleared{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
