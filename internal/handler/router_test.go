package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/service/ai"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

const cookieName = "ruffie_session"

func newTestRouter(t *testing.T, gw ai.Gateway) http.Handler {
	t.Helper()
	store := persona.NewMemoryStore(persona.Seed())
	coachSvc := coach.NewService(ai.NewComposer(store), gw, nil)
	return NewRouter(cookieName, store, session.NewRegistry(), coachSvc)
}

// gradeByContent replies "Grade: A-" when the submission mentions a vendor and
// "Grade: C" otherwise.
func gradeByContent() ai.Gateway {
	return ai.GatewayFunc(func(_ context.Context, messages []*schema.Message) (string, error) {
		last := messages[len(messages)-1].Content
		if strings.Contains(last, "vendor") {
			return "Nice.\nGrade: A-\nWhat is the mitigation?", nil
		}
		return "Restated.\nGrade: C\nWhat causes it?", nil
	})
}

func do(t *testing.T, router http.Handler, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID string `json:"sessionId"`
		Turns     []struct {
			Role string `json:"role"`
		} `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.SessionID == "" || len(resp.Turns) != 1 || resp.Turns[0].Role != "assistant" {
		t.Fatalf("unexpected login response: %s", rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != cookieName || cookies[0].Value != resp.SessionID {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	return resp.SessionID
}

func TestLoginRequiresCredentials(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	rec := do(t, router, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": " "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	for _, path := range []string{"/api/session", "/api/risks", "/api/risks/export"} {
		if rec := do(t, router, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s expected 401, got %d", path, rec.Code)
		}
	}
	if rec := do(t, router, http.MethodGet, "/api/personas", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("personas should be public, got %d", rec.Code)
	}
}

func TestSubmitFlow(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	rec := do(t, router, http.MethodPost, "/api/messages", id, map[string]string{"content": "We might miss the deadline"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var first struct {
		Outcome string `json:"outcome"`
		Reply   struct {
			Grade string `json:"grade"`
			Band  string `json:"band"`
		} `json:"reply"`
		Entry *json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if first.Outcome != "coached" || first.Reply.Grade != "C" || first.Reply.Band != "low" || first.Entry != nil {
		t.Fatalf("unexpected first submission: %s", rec.Body.String())
	}

	statement := "Because the vendor has not signed, integration slips, costing $50k/week"
	rec = do(t, router, http.MethodPost, "/api/messages", id, map[string]string{"content": statement})
	if !strings.Contains(rec.Body.String(), `"sequence":1`) {
		t.Fatalf("expected ledger entry in response: %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/risks", id, nil)
	var risks struct {
		Columns []string `json:"columns"`
		Entries []struct {
			Statement string `json:"statement"`
			Grade     string `json:"grade"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &risks); err != nil {
		t.Fatalf("decode risks: %v", err)
	}
	if len(risks.Columns) != 13 || len(risks.Entries) != 1 || risks.Entries[0].Statement != statement || risks.Entries[0].Grade != "A-" {
		t.Fatalf("unexpected risks: %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/risks/export", id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export expected 200, got %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "ruffie-risks-") || !strings.HasSuffix(disposition, `.csv"`) {
		t.Fatalf("unexpected disposition %q", disposition)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Risk Number,") || !strings.HasPrefix(lines[1], "1,") {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}
	if !strings.Contains(lines[1], `"Because the vendor has not signed, integration slips, costing $50k/week"`) {
		t.Fatalf("statement with comma should be quoted:\n%s", lines[1])
	}

	rec = do(t, router, http.MethodPost, "/api/session/clear", id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear expected 200, got %d", rec.Code)
	}
	var cleared struct {
		Turns []json.RawMessage `json:"turns"`
		Risks []json.RawMessage `json:"risks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cleared); err != nil {
		t.Fatalf("decode clear: %v", err)
	}
	if len(cleared.Turns) != 1 || len(cleared.Risks) != 0 {
		t.Fatalf("expected greeting only after clear: %s", rec.Body.String())
	}
}

func TestSubmitRejectsBlankContent(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	rec := do(t, router, http.MethodPost, "/api/messages", id, map[string]string{"content": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitFailureRecordsDiagnostic(t *testing.T) {
	router := newTestRouter(t, ai.Unavailable())
	id := login(t, router)

	rec := do(t, router, http.MethodPost, "/api/messages", id, map[string]string{"content": "risk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"failed"`) || !strings.Contains(rec.Body.String(), ai.ErrGatewayUnavailable.Error()) {
		t.Fatalf("unexpected failure response: %s", rec.Body.String())
	}
}

func TestSetPersona(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	if rec := do(t, router, http.MethodPut, "/api/session/persona", id, map[string]string{"persona": "pirate"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown persona, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodPut, "/api/session/persona", id, map[string]string{"persona": "socratic"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"personaId":"socratic"`) {
		t.Fatalf("unexpected persona response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/session", id, nil)
	if !strings.Contains(rec.Body.String(), `"name":"Socrates"`) {
		t.Fatalf("session should report the active persona: %s", rec.Body.String())
	}
}

func TestLogoutDiscardsSession(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	if rec := do(t, router, http.MethodPost, "/api/logout", id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout expected 204, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/api/session", id, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestStreamEmitsUserTurnThenReply(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/stream?message=vendor+risk", nil)
	req.Header.Set(middleware.SessionHeader, id)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	body := rec.Body.String()
	userIdx := strings.Index(body, `"role":"user"`)
	replyIdx := strings.Index(body, `"role":"assistant"`)
	riskIdx := strings.Index(body, "event: risk")
	endIdx := strings.Index(body, "event: end")
	if userIdx < 0 || replyIdx < userIdx || riskIdx < replyIdx || endIdx < riskIdx {
		t.Fatalf("unexpected event order:\n%s", body)
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	req.Header.Set(middleware.SessionHeader, id)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestWebSocketSubmit(t *testing.T) {
	router := newTestRouter(t, gradeByContent())
	id := login(t, router)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := http.Header{}
	header.Set(middleware.SessionHeader, id)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() wsMessage {
		t.Helper()
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != "connected" {
		t.Fatalf("expected connected, got %s", msg.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "persona", "persona": "executive"}); err != nil {
		t.Fatalf("write persona: %v", err)
	}
	if msg := read(); msg.Type != "persona" || !strings.Contains(string(msg.Data), "executive") {
		t.Fatalf("unexpected persona ack: %s %s", msg.Type, msg.Data)
	}

	if err := conn.WriteJSON(map[string]string{"type": "submit", "content": "vendor risk"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	var types []string
	for i := 0; i < 3; i++ {
		types = append(types, read().Type)
	}
	if strings.Join(types, ",") != "turn,turn,risk" {
		t.Fatalf("unexpected message sequence %v", types)
	}

	if err := conn.WriteJSON(map[string]string{"type": "clear"}); err != nil {
		t.Fatalf("write clear: %v", err)
	}
	if msg := read(); msg.Type != "cleared" {
		t.Fatalf("expected cleared, got %s", msg.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "dance"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	if msg := read(); msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
}
