package risk

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/service/ledger"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// Handler 风险登记的HTTP处理器
type Handler struct {
	now func() time.Time
}

// New 创建风险登记处理器
func New() *Handler {
	return &Handler{now: time.Now}
}

// RegisterRoutes 注册风险登记相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/risks", h.handleList)
	r.Get("/risks/export", h.handleExport)
}

type listResponse struct {
	Columns []string       `json:"columns"`
	Entries []ledger.Entry `json:"entries"`
}

// handleList 返回当前会话的风险登记
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, listResponse{
		Columns: ledger.Columns,
		Entries: sess.Ledger.Entries(),
	})
}

// handleExport 导出风险登记为CSV附件，空登记也返回表头
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())

	body, err := sess.Ledger.Export()
	if err != nil {
		log.Printf("[risk] export failed for session=%s: %v", sess.ID, err)
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	utils.RespondAttachment(w, "text/csv; charset=utf-8", ledger.Filename(h.now()), body)
}
