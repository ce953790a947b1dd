package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ruffie/backend/internal/handler/auth"
	"github.com/zhouzirui/ruffie/backend/internal/handler/coach"
	"github.com/zhouzirui/ruffie/backend/internal/handler/persona"
	"github.com/zhouzirui/ruffie/backend/internal/handler/risk"
	"github.com/zhouzirui/ruffie/backend/internal/handler/stream"
	"github.com/zhouzirui/ruffie/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/ruffie/backend/internal/middleware"
	personaModel "github.com/zhouzirui/ruffie/backend/internal/model/persona"
	coachService "github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessionCookie string, personas personaModel.Store, registry *session.Registry, coachSvc *coachService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	authHandler := auth.New(registry, coachSvc, sessionCookie)
	personaHandler := persona.New(personas)
	coachHandler := coach.New(coachSvc, personas)
	riskHandler := risk.New()
	streamHandler := stream.New(coachSvc)
	wsHandler := ws.New(coachSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": registry.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api)
		personaHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireSession(registry, sessionCookie))

			authHandler.RegisterSessionRoutes(protected)
			coachHandler.RegisterRoutes(protected)
			riskHandler.RegisterRoutes(protected)
			streamHandler.RegisterRoutes(protected)
			wsHandler.RegisterRoutes(protected)
		})
	})

	return r
}
