package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/scene"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// CreateRequest is the body of POST /v1/scenes.
type CreateRequest struct {
	Name    string             `json:"name,omitempty"`
	Screen  *scene.BBox        `json:"screen,omitempty"`
	Objects []scene.Descriptor `json:"objects"`
	// Monitor starts the overlap monitor.
	Monitor bool `json:"monitor,omitempty"`
	// Refresh bypasses the layout cache.
	Refresh bool `json:"refresh,omitempty"`
}

// RemoveRequest is the body of POST /v1/scenes/{id}/remove.
type RemoveRequest struct {
	IDs      []string `json:"ids"`
	Validate bool     `json:"validate"`
}

// SceneView is the response for a single scene.
type SceneView struct {
	store.RunInfo
	Live     bool            `json:"live"`
	Layout   pipeline.Layout `json:"layout"`
	Current  []scene.Placed  `json:"current,omitempty"`
	Monitor  *overlap.Stats  `json:"monitor,omitempty"`
	Removals *fadeout.Stats  `json:"removals,omitempty"`
}

// TasksView is the response of GET /v1/scenes/{id}/tasks.
type TasksView struct {
	Active   []overlap.Task         `json:"active"`
	Finished []overlap.Task         `json:"finished"`
	Stats    overlap.SchedulerStats `json:"stats"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body: %v", err)
	}
	return nil
}

func (s *Server) createScene(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	file := scene.File{Screen: req.Screen, Objects: req.Objects}
	if err := file.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	opts := s.base
	if req.Screen != nil {
		opts.Screen = *req.Screen
	}
	opts.StartMonitor = req.Monitor
	opts.Refresh = req.Refresh

	res, err := s.runner.Execute(r.Context(), file.ObjectList(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	run := store.Run{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: s.now().UTC(),
		Layout:    res.Layout,
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		_ = res.Stop(r.Context())
		s.writeError(w, err)
		return
	}

	s.track(r.Context(), newLiveScene(run, res, s.store, s.logger))
	view := SceneView{RunInfo: run.Info(), Layout: run.Layout, Live: true}
	s.logger.Info("scene laid out", "scene", run.ID, "objects", len(file.Objects),
		"warnings", len(res.Layout.Summary.Warnings), "cache_hit", res.Layout.Summary.CacheHit, "monitor", req.Monitor)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) listScenes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := SceneView{RunInfo: run.Info(), Layout: run.Layout}
	if ls := s.lookup(id); ls != nil {
		view.Live = true
		view.Current = scene.ExportAll(ls.res.Registry.Snapshot().Objects)
		if m := ls.res.Monitor; m != nil {
			st := m.Stats()
			view.Monitor = &st
		}
		rs := ls.res.Remover.Stats()
		view.Removals = &rs
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if ls := s.untrack(id); ls != nil {
		if err := ls.stop(r.Context(), false); err != nil {
			s.logger.Warn("stop deleted scene", "scene", id, "err", err)
		}
	}
	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stopScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.requireLive(w, r, id) == nil {
		return
	}
	ls := s.untrack(id)
	if ls == nil {
		s.writeError(w, notLive(id))
		return
	}
	if err := ls.stop(r.Context(), true); err != nil {
		s.writeError(w, err)
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SceneView{RunInfo: run.Info(), Layout: run.Layout})
}

func (s *Server) sceneEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var events []overlap.Event
	if ls := s.lookup(id); ls != nil && ls.res.Monitor != nil {
		events = ls.res.Monitor.Events()
	} else {
		if _, err := s.store.GetRun(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		var err error
		if events, err = s.store.Events(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if events == nil {
		events = []overlap.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) sceneRemovals(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	reps, err := s.store.Removals(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if reps == nil {
		reps = []fadeout.Report{}
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) sceneTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ls := s.requireLive(w, r, id)
	if ls == nil {
		return
	}
	if ls.res.Monitor == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotRunning, "scene %q has no monitor", id))
		return
	}
	sched := ls.res.Monitor.Scheduler()
	view := TasksView{Active: sched.Active(), Finished: sched.Finished(), Stats: sched.Stats()}
	if view.Active == nil {
		view.Active = []overlap.Task{}
	}
	if view.Finished == nil {
		view.Finished = []overlap.Task{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) removeObjects(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ls := s.requireLive(w, r, id)
	if ls == nil {
		return
	}
	var req RemoveRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "ids must not be empty"))
		return
	}

	rep := ls.res.Remover.Remove(r.Context(), req.IDs, req.Validate)
	if err := s.store.AppendRemoval(r.Context(), id, rep); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("objects removed", "scene", id, "requested", len(rep.Requested),
		"succeeded", len(rep.Succeeded), "failed", len(rep.Failed), "duration", rep.Duration.Round(time.Microsecond))
	writeJSON(w, http.StatusOK, rep)
}

// requireLive returns the live scene or writes NOT_FOUND for unknown ids
// and NOT_RUNNING for stored ones that are no longer live.
func (s *Server) requireLive(w http.ResponseWriter, r *http.Request, id string) *liveScene {
	if ls := s.lookup(id); ls != nil {
		return ls
	}
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.writeError(w, err)
		return nil
	}
	s.writeError(w, notLive(id))
	return nil
}

func notLive(id string) error {
	return errors.New(errors.ErrCodeNotRunning, "scene %q is not live", id)
}
