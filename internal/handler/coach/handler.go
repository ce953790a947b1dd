package coach

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	coachService "github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// Handler 教练会话的HTTP处理器
type Handler struct {
	coachSvc     *coachService.Service
	personaStore persona.Store
}

// New 创建教练处理器
func New(coachSvc *coachService.Service, personaStore persona.Store) *Handler {
	return &Handler{
		coachSvc:     coachSvc,
		personaStore: personaStore,
	}
}

// RegisterRoutes 注册会话相关的路由，调用方负责挂载会话中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Put("/session/persona", h.handleSetPersona)
	r.Post("/session/clear", h.handleClear)
	r.Post("/messages", h.handleSubmit)
}

type sessionResponse struct {
	Session chat.Session    `json:"session"`
	Persona persona.Persona `json:"persona"`
	Turns   []chat.TurnView `json:"turns"`
	Risks   []ledger.Entry  `json:"risks"`
}

// SubmitResponse 是一次提交的结果，新增的对话轮次附带等级分档
type SubmitResponse struct {
	Outcome  coachService.Outcome `json:"outcome"`
	UserTurn *chat.TurnView       `json:"userTurn,omitempty"`
	Reply    *chat.TurnView       `json:"reply,omitempty"`
	Entry    *ledger.Entry        `json:"entry,omitempty"`
}

// NewSubmitResponse 将提交结果转换为响应体
func NewSubmitResponse(result coachService.Result) SubmitResponse {
	resp := SubmitResponse{Outcome: result.Outcome, Entry: result.Entry}
	if result.UserTurn != nil {
		view := result.UserTurn.View()
		resp.UserTurn = &view
	}
	if result.Reply != nil {
		view := result.Reply.View()
		resp.Reply = &view
	}
	return resp
}

// handleGetSession 返回会话摘要、当前人设、完整对话和风险登记
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, h.snapshot(sess))
}

func (h *Handler) snapshot(sess *session.Session) sessionResponse {
	p, _ := h.personaStore.FindByID(sess.Persona())
	return sessionResponse{
		Session: sess.View(),
		Persona: p,
		Turns:   chat.Views(sess.Conversation.Transcript()),
		Risks:   sess.Ledger.Entries(),
	}
}

// handleSetPersona 切换人设，仅影响之后的提交
func (h *Handler) handleSetPersona(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Persona string `json:"persona"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := middleware.SessionFrom(r.Context())
	if err := sess.SetPersona(persona.Key(strings.TrimSpace(payload.Persona))); err != nil {
		if errors.Is(err, session.ErrUnknownPersona) {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, sess.View())
}

// handleClear 清空对话和风险登记，只保留问候语
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	h.coachSvc.Clear(sess)
	utils.RespondJSON(w, http.StatusOK, h.snapshot(sess))
}

// handleSubmit 提交一条风险陈述并同步返回教练回复
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	sess := middleware.SessionFrom(r.Context())
	result := h.coachSvc.Submit(r.Context(), sess, payload.Content)

	switch result.Outcome {
	case coachService.OutcomeIgnored:
		utils.RespondError(w, http.StatusConflict, "a submission is already in progress")
	case coachService.OutcomeDiscarded:
		utils.RespondJSON(w, http.StatusConflict, NewSubmitResponse(result))
	default:
		utils.RespondJSON(w, http.StatusOK, NewSubmitResponse(result))
	}
}
