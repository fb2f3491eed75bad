package adminweb

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"delivery-bot/internal/service"
)

// Pinger reports backing-store health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Server is the operator REST API.
type Server struct {
	admin   *service.AdminService
	stats   *service.StatsService
	catalog service.Catalog
	db      Pinger

	http *http.Server
}

// New builds the API server listening on addr, authenticated by apiToken.
func New(addr, apiToken string, admin *service.AdminService, stats *service.StatsService, catalog service.Catalog, db Pinger) *Server {
	s := &Server{
		admin:   admin,
		stats:   stats,
		catalog: catalog,
		db:      db,
	}

	r := chi.NewRouter()
	r.Use(Recovery)
	r.Use(RequestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(apiToken))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Get("/export", s.handleExportUsers)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Delete("/", s.handleDeleteUser)
				r.Patch("/", s.handleRenameUser)
				r.Get("/buffs", s.handleUserBuffs)
				r.Get("/transactions", s.handleUserTransactions)
				r.Post("/balance", s.handleAdjustBalance)
				r.Post("/grant", s.handleGrantBuff)
				r.Post("/block", s.handleBlockUser)
				r.Post("/unblock", s.handleUnblockUser)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/", s.handleCreateItem)

			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Put("/", s.handleUpdateItem)
				r.Post("/activate", s.handleSetItemActive(true))
				r.Post("/deactivate", s.handleSetItemActive(false))
			})
		})

		r.Get("/stats", s.handleStats)
		r.Post("/buffs/prune", s.handlePruneBuffs)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
