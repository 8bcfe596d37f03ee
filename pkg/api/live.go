package api

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/store"
)

const eventBuffer = 256

// liveScene is a laid-out scene whose registry and monitor are still in
// memory. Monitor events are queued and written to the store by one
// goroutine so the monitor never waits on the store.
type liveScene struct {
	id     string
	run    store.Run
	res    *pipeline.Result
	store  store.Store
	logger *log.Logger

	mu      sync.Mutex
	closed  bool
	dropped int
	events  chan overlap.Event
	saved   chan struct{}
}

func newLiveScene(run store.Run, res *pipeline.Result, st store.Store, logger *log.Logger) *liveScene {
	ls := &liveScene{
		id:     run.ID,
		run:    run,
		res:    res,
		store:  st,
		logger: logger.With("scene", run.ID),
		events: make(chan overlap.Event, eventBuffer),
		saved:  make(chan struct{}),
	}
	go ls.persist()
	if res.Monitor != nil {
		res.Monitor.OnEvent(ls.enqueue)
	}
	return ls
}

func (ls *liveScene) enqueue(ev overlap.Event) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return
	}
	select {
	case ls.events <- ev:
	default:
		// The final flush in stop picks these up from the monitor history.
		ls.dropped++
	}
}

func (ls *liveScene) persist() {
	defer close(ls.saved)
	for ev := range ls.events {
		if err := ls.store.SaveEvent(context.Background(), ls.id, ev); err != nil {
			ls.logger.Warn("save event failed", "event", ev.ID, "err", err)
		}
	}
}

// stop halts the monitor and drains the event queue. With flush set it
// also writes the final event history and layout summary, which carry
// correction outcomes that were not known when events were first queued.
func (ls *liveScene) stop(ctx context.Context, flush bool) error {
	stopErr := ls.res.Stop(ctx)

	ls.mu.Lock()
	already := ls.closed
	if !already {
		ls.closed = true
		close(ls.events)
	}
	dropped := ls.dropped
	ls.mu.Unlock()
	if already {
		return stopErr
	}

	select {
	case <-ls.saved:
	case <-ctx.Done():
		return ctx.Err()
	}
	if dropped > 0 {
		ls.logger.Warn("event queue overflowed", "dropped", dropped)
	}
	if !flush {
		return stopErr
	}

	if ls.res.Monitor != nil {
		for _, ev := range ls.res.Monitor.Events() {
			if err := ls.store.SaveEvent(ctx, ls.id, ev); err != nil {
				return err
			}
		}
	}
	run := ls.run
	run.Layout = ls.res.Layout
	if err := ls.store.SaveRun(ctx, run); err != nil {
		return err
	}
	return stopErr
}

// track registers ls, evicting the oldest live scenes beyond the limit.
func (s *Server) track(ctx context.Context, ls *liveScene) {
	s.mu.Lock()
	var evicted []*liveScene
	for len(s.order) >= s.cfg.MaxLiveScenes {
		oldest := s.order[0]
		s.order = s.order[1:]
		evicted = append(evicted, s.live[oldest])
		delete(s.live, oldest)
	}
	s.live[ls.id] = ls
	s.order = append(s.order, ls.id)
	s.mu.Unlock()

	for _, old := range evicted {
		s.logger.Info("evicting live scene", "scene", old.id)
		if err := old.stop(ctx, true); err != nil {
			s.logger.Warn("stop evicted scene", "scene", old.id, "err", err)
		}
	}
}

// untrack removes id from the live set and returns it, or nil.
func (s *Server) untrack(id string) *liveScene {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[id]
	if !ok {
		return nil
	}
	delete(s.live, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return ls
}

func (s *Server) lookup(id string) *liveScene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[id]
}
