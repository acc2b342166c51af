// Package server exposes the HTTP API: upload intake, job polling, markdown
// export, and a websocket status stream.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"clearminutes/internal/blob"
	"clearminutes/internal/models"
	"clearminutes/internal/orchestrator"
	"clearminutes/internal/store"
)

type App struct {
	logger *slog.Logger
	router *chi.Mux

	orch  *orchestrator.Orchestrator
	store *store.Store
	blobs *blob.Store

	mu   sync.RWMutex
	subs map[string]map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

func NewApp(logger *slog.Logger, orch *orchestrator.Orchestrator, st *store.Store, blobs *blob.Store) *App {
	app := &App{
		logger: logger,
		router: chi.NewRouter(),
		orch:   orch,
		store:  st,
		blobs:  blobs,
		subs:   make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	orch.OnJobUpdate(app.broadcast)
	app.registerRoutes()
	return app
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.corsMiddleware)

	a.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", a.upload)
		r.Get("/jobs/{id}", a.getJob)
		r.Get("/jobs/{id}/export", a.exportJob)
		r.Get("/jobs/{id}/events", a.jobEvents)
		r.Delete("/jobs/{id}", a.deleteJob)
		r.Get("/health", a.health)
	})
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode json", "error", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, code int, msg string) {
	a.respondJSON(w, code, map[string]string{"error": msg})
}

func (a *App) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// broadcast fans a status transition out to websocket subscribers of the job.
func (a *App) broadcast(job models.Job) {
	evt := models.StatusEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Filename: job.Filename,
		Error:    job.ErrorMsg,
	}

	a.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(a.subs[job.ID]))
	for c := range a.subs[job.ID] {
		conns = append(conns, c)
	}
	a.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(evt); err != nil {
			a.mu.Lock()
			delete(a.subs[job.ID], c)
			a.mu.Unlock()
			_ = c.Close()
		}
	}
}
