package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/teamboard/internal/handler/auth"
	"github.com/zhouzirui/teamboard/internal/handler/inbox"
	"github.com/zhouzirui/teamboard/internal/handler/workspace"
	middlewarePkg "github.com/zhouzirui/teamboard/internal/middleware"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// APIPrefix is where the collaboration API is mounted.
const APIPrefix = "/api/v1"

// NewRouter wires HTTP routes to the in-memory service. A nil registry
// disables /metrics.
func NewRouter(svc *mockapi.Service, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	if reg != nil {
		r.Use(middlewarePkg.NewMetrics(reg).Handler)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	// Create handlers
	authHandler := auth.New(svc)
	workspaceHandler := workspace.New(svc)
	inboxHandler := inbox.New(svc)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Uploaded files are public, like Active Storage blob URLs
	r.Get("/rails/active_storage/blobs/{blobID}/{filename}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.IDParam(w, r, "blobID")
		if !ok {
			return
		}
		data, found := svc.Blob(id)
		if !found {
			utils.RespondError(w, http.StatusNotFound, "blob not found")
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		_, _ = w.Write(data)
	})

	r.Route(APIPrefix, func(api chi.Router) {
		authHandler.RegisterPublicRoutes(api)

		api.Group(func(private chi.Router) {
			private.Use(middlewarePkg.RequireAuth(svc))

			authHandler.RegisterRoutes(private)
			workspaceHandler.RegisterRoutes(private)
			inboxHandler.RegisterRoutes(private)
		})
	})

	return r
}
