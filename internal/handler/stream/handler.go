package stream

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// Handler streams a submission via Server-Sent Events: the accepted user turn
// first, the coach reply once the model answers, then a closing event.
type Handler struct {
	coachSvc *coach.Service
}

// New creates a new stream handler
func New(coachSvc *coach.Service) *Handler {
	return &Handler{coachSvc: coachSvc}
}

// RegisterRoutes mounts the stream endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

// EndEvent closes every stream.
type EndEvent struct {
	Outcome  coach.Outcome `json:"outcome"`
	Finished bool          `json:"finished"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess := middleware.SessionFrom(r.Context())
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// A client that disconnects mid-request still gets its turns recorded.
	send := func(event string, data interface{}) {
		if err := utils.SendSSEEvent(w, flusher, event, data); err != nil {
			log.Printf("[stream] session=%s failed to send %s: %v", sess.ID, event, err)
		}
	}

	result := h.coachSvc.SubmitWithObserver(r.Context(), sess, message, func(turn chat.Turn) {
		send("turn", turn.View())
	})

	switch result.Outcome {
	case coach.OutcomeIgnored:
		send("ignored", map[string]string{"reason": "a submission is already in progress"})
	case coach.OutcomeCoached, coach.OutcomeFailed:
		if result.Reply != nil {
			send("turn", result.Reply.View())
		}
		if result.Entry != nil {
			send("risk", result.Entry)
		}
	}

	send("end", EndEvent{Outcome: result.Outcome, Finished: true})
}
