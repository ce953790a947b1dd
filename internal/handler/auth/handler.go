package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// Handler 登录与登出的HTTP处理器
type Handler struct {
	registry   *session.Registry
	coachSvc   *coach.Service
	cookieName string
}

// New 创建登录处理器
func New(registry *session.Registry, coachSvc *coach.Service, cookieName string) *Handler {
	return &Handler{
		registry:   registry,
		coachSvc:   coachSvc,
		cookieName: cookieName,
	}
}

// RegisterRoutes 注册公开路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// RegisterSessionRoutes 注册需要会话的路由
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
}

type loginResponse struct {
	SessionID string          `json:"sessionId"`
	Session   chat.Session    `json:"session"`
	Turns     []chat.TurnView `json:"turns"`
}

// handleLogin 创建会话并写入 cookie
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.registry.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, session.ErrCredentialsRequired) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("[auth] session=%s opened for %s", sess.ID, sess.Owner)
	utils.RespondJSON(w, http.StatusCreated, loginResponse{
		SessionID: sess.ID,
		Session:   sess.View(),
		Turns:     chat.Views(sess.Conversation.Transcript()),
	})
}

// handleLogout 丢弃会话及其全部对话和风险登记
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())

	if err := h.registry.Logout(r.Context(), sess.ID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if h.coachSvc != nil {
		h.coachSvc.Ended(sess)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	log.Printf("[auth] session=%s closed", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
