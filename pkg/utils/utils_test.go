package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsEmptyAndUnknown(t *testing.T) {
	var payload struct {
		Content string `json:"content"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected error for empty body")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"x","extra":1}`))
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected error for unknown field")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"risk"}`))
	if err := DecodeJSON(req, &payload); err != nil {
		t.Fatalf("DecodeJSON err: %v", err)
	}
	if payload.Content != "risk" {
		t.Fatalf("unexpected content %q", payload.Content)
	}
}

func TestRespondAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAttachment(rec, "text/csv", "risks.csv", []byte("a,b\n"))

	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="risks.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "a,b\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := SendSSEEvent(rec, rec, "end", map[string]bool{"finished": true}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}
	want := "event: end\ndata: {\"finished\":true}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("got %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Fatal("expected flush")
	}
}
