// Package api serves the layout engine over HTTP.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/scenes                 lay out a scene, optionally start its monitor
//	GET    /v1/scenes                 list stored runs, newest first (?limit=N)
//	GET    /v1/scenes/{id}            stored layout plus live state
//	DELETE /v1/scenes/{id}            stop the scene and delete its records
//	GET    /v1/scenes/{id}/events     overlap events
//	GET    /v1/scenes/{id}/tasks      correction tasks (live scenes only)
//	GET    /v1/scenes/{id}/removals   stored removal reports
//	POST   /v1/scenes/{id}/remove     fade out objects (live scenes only)
//	POST   /v1/scenes/{id}/stop       stop the monitor and persist final state
//
// A scene stays live (registry, monitor and remover in memory) until it is
// stopped, deleted or evicted to make room for a newer one. Its layout,
// events and removal reports are written to a [store.Store] and remain
// readable afterwards.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// Server holds live scenes and routes requests to them.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	base   pipeline.Options
	cfg    config.ServerConfig
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	live  map[string]*liveScene
	order []string // live ids, oldest first
}

// New creates a server. base supplies the screen and component configs for
// every scene; requests may override the screen.
func New(runner *pipeline.Runner, st store.Store, base pipeline.Options, cfg config.ServerConfig, logger *log.Logger) *Server {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	base.Logger = logger
	return &Server{
		runner: runner,
		store:  st,
		base:   base,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		live:   make(map[string]*liveScene),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Route("/v1/scenes", func(r chi.Router) {
		r.Post("/", s.createScene)
		r.Get("/", s.listScenes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getScene)
			r.Delete("/", s.deleteScene)
			r.Get("/events", s.sceneEvents)
			r.Get("/tasks", s.sceneTasks)
			r.Get("/removals", s.sceneRemovals)
			r.Post("/remove", s.removeObjects)
			r.Post("/stop", s.stopScene)
		})
	})
	return r
}

// Close stops every live scene, persisting its final state.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	scenes := make([]*liveScene, 0, len(s.order))
	for _, id := range s.order {
		scenes = append(scenes, s.live[id])
	}
	s.live = make(map[string]*liveScene)
	s.order = nil
	s.mu.Unlock()

	var first error
	for _, ls := range scenes {
		if err := ls.stop(ctx, true); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.live)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "live_scenes": n})
}

// =============================================================================
// Middleware
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs each request and reports it to the API hooks under its
// route pattern, so /v1/scenes/{id} is one series rather than one per id.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		hooks := observability.API()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, route, rec.status, elapsed)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", rec.status,
			"duration", elapsed, "request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: errors.UserMessage(err)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidScene, errors.ErrCodeInvalidCategory,
		errors.ErrCodeInvalidBounds, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeDuplicateID, errors.ErrCodeNotRunning, errors.ErrCodeAlreadyCorrecting:
		return http.StatusConflict
	case errors.ErrCodeRemovalRefused:
		return http.StatusForbidden
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeCancelled:
		return http.StatusServiceUnavailable
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
