package overlap

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/observability"
)

// Corrector applies one correction. Implementations must return promptly
// once ctx is done.
type Corrector interface {
	Apply(ctx context.Context, t Task) error
}

// CorrectorFunc adapts a function to the Corrector interface.
type CorrectorFunc func(ctx context.Context, t Task) error

// Apply calls f.
func (f CorrectorFunc) Apply(ctx context.Context, t Task) error { return f(ctx, t) }

// SchedulerStats counts task outcomes.
type SchedulerStats struct {
	Scheduled    int `json:"scheduled"`
	Skipped      int `json:"skipped"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Pending      int `json:"pending"`
	Applying     int `json:"applying"`
	PeakApplying int `json:"peak_applying"`
}

type taskState struct {
	task   Task
	ctx    context.Context // cancelled to abort a pending task
	cancel context.CancelFunc
	done   bool
}

// Scheduler runs correction tasks on a bounded pool. At most
// MaxConcurrentCorrections tasks are applying at any instant, and an object
// is the target of at most one unfinished task.
type Scheduler struct {
	cfg       Config
	corrector Corrector
	sem       *semaphore.Weighted
	logger    *log.Logger

	mu       sync.Mutex
	inFlight map[string]string // object id -> task id
	active   map[string]*taskState
	finished []Task
	stats    SchedulerStats
	closed   bool
	onDone   []func(Task)
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler that applies tasks with c.
func NewScheduler(cfg Config, c Corrector, logger *log.Logger) *Scheduler {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scheduler{
		cfg:       cfg,
		corrector: c,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentCorrections)),
		logger:    logger,
		inFlight:  make(map[string]string),
		active:    make(map[string]*taskState),
	}
}

// OnDone registers fn to be called with every task that reaches a final
// status. Callbacks run on the task's goroutine.
func (s *Scheduler) OnDone(fn func(Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDone = append(s.onDone, fn)
}

// Submit schedules a correction for ev. It returns ALREADY_CORRECTING when
// either participant is already under correction and NOT_RUNNING after
// Shutdown.
func (s *Scheduler) Submit(ev Event) (Task, error) {
	targets := []string{ev.Subject}
	if ev.Action == ActionTextReposition || ev.Subject == "" {
		targets = []string{ev.A, ev.B}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Task{}, errors.New(errors.ErrCodeNotRunning, "scheduler is shut down")
	}
	for _, id := range targets {
		if owner, busy := s.inFlight[id]; busy {
			s.stats.Skipped++
			return Task{}, errors.New(errors.ErrCodeAlreadyCorrecting, "object %q is under correction by task %s", id, owner)
		}
	}

	t := Task{
		ID:      uuid.NewString(),
		EventID: ev.ID,
		Targets: targets,
		Subject: ev.Subject,
		Other:   ev.Other(),
		Action:  ev.Action,
		Status:  StatusPending,
		Created: time.Now(),
		Timeout: s.cfg.CorrectionTimeout,
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &taskState{task: t, ctx: ctx, cancel: cancel}
	for _, id := range targets {
		s.inFlight[id] = t.ID
	}
	s.active[t.ID] = st
	s.stats.Scheduled++
	s.stats.Pending++

	s.wg.Add(1)
	go s.run(st)

	s.logger.Debug("correction scheduled", "task", t.ID, "action", t.Action, "targets", targets)
	return t.clone(), nil
}

// Cancel aborts a pending task. Tasks that are already applying cannot be
// cancelled.
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[taskID]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "task %q not found", taskID)
	}
	if st.task.Status != StatusPending {
		return errors.New(errors.ErrCodeInvalidInput, "task %q is %s and cannot be cancelled", taskID, st.task.Status)
	}
	st.cancel()
	return nil
}

func (s *Scheduler) run(st *taskState) {
	defer s.wg.Done()
	defer s.release(st)

	if err := s.sem.Acquire(st.ctx, 1); err != nil {
		s.finish(st, errors.Wrap(errors.ErrCodeCancelled, err, "task %s cancelled while pending", st.task.ID))
		return
	}
	task, ok := s.markApplying(st)
	if !ok {
		s.sem.Release(1)
		s.finish(st, errors.New(errors.ErrCodeCancelled, "task %s cancelled while pending", st.task.ID))
		return
	}

	// Applying tasks are not tied to Shutdown; they get the full timeout.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CorrectionTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.apply(ctx, task) }()

	select {
	case err := <-errCh:
		s.sem.Release(1)
		s.finish(st, err)
	case <-ctx.Done():
		s.finish(st, errors.New(errors.ErrCodeTimeout, "task %s exceeded %v", st.task.ID, s.cfg.CorrectionTimeout))
		// Hold the slot and the targets until the corrector really returns.
		<-errCh
		s.sem.Release(1)
	}
}

// apply runs the corrector, converting a panic into an error.
func (s *Scheduler) apply(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeCorrectionFailure, "corrector panic: %v", r)
		}
	}()
	if s.corrector == nil {
		return nil
	}
	return s.corrector.Apply(ctx, t)
}

func (s *Scheduler) markApplying(st *taskState) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ctx.Err() != nil || st.task.Status != StatusPending {
		return Task{}, false
	}
	st.task.Status = StatusApplying
	st.task.Started = time.Now()
	s.stats.Pending--
	s.stats.Applying++
	s.stats.PeakApplying = max(s.stats.PeakApplying, s.stats.Applying)
	return st.task.clone(), true
}

func (s *Scheduler) finish(st *taskState, err error) {
	s.mu.Lock()
	if st.done {
		s.mu.Unlock()
		return
	}
	st.done = true
	switch st.task.Status {
	case StatusPending:
		s.stats.Pending--
	case StatusApplying:
		s.stats.Applying--
	}
	st.task.Finished = time.Now()
	if err != nil {
		st.task.Status = StatusFailed
		st.task.Error = err.Error()
		s.stats.Failed++
	} else {
		st.task.Status = StatusCompleted
		s.stats.Completed++
	}
	delete(s.active, st.task.ID)
	s.finished = append(s.finished, st.task.clone())
	if over := len(s.finished) - s.cfg.HistoryLimit; over > 0 {
		s.finished = s.finished[over:]
	}
	t := st.task.clone()
	callbacks := append([]func(Task){}, s.onDone...)
	s.mu.Unlock()

	st.cancel()
	elapsed := t.Finished.Sub(t.Created)
	if err != nil {
		s.logger.Warn("correction failed", "task", t.ID, "action", t.Action, "err", err)
	} else {
		s.logger.Debug("correction completed", "task", t.ID, "action", t.Action, "duration", elapsed)
	}
	observability.Monitor().OnCorrection(context.Background(), string(t.Action), string(t.Status), elapsed)
	for _, fn := range callbacks {
		fn(t)
	}
}

func (s *Scheduler) release(st *taskState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range st.task.Targets {
		if s.inFlight[id] == st.task.ID {
			delete(s.inFlight, id)
		}
	}
}

// Busy reports whether id is the target of an unfinished task.
func (s *Scheduler) Busy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// Active returns copies of unfinished tasks.
func (s *Scheduler) Active() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.active))
	for _, st := range s.active {
		out = append(out, st.task.clone())
	}
	return out
}

// Finished returns copies of completed and failed tasks, oldest first.
func (s *Scheduler) Finished() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.finished))
	for i, t := range s.finished {
		out[i] = t.clone()
	}
	return out
}

// Stats returns the task counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Shutdown stops accepting tasks, cancels pending ones and waits for
// applying ones. Each applying task is bounded by CorrectionTimeout, so the
// wait is too; if ctx ends first the remaining tasks are marked failed and
// Shutdown returns a TIMEOUT error.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, st := range s.active {
		if st.task.Status == StatusPending {
			st.cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	remaining := make([]*taskState, 0, len(s.active))
	for _, st := range s.active {
		remaining = append(remaining, st)
	}
	s.mu.Unlock()
	for _, st := range remaining {
		s.finish(st, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "task %s abandoned at shutdown", st.task.ID))
	}
	return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%d corrections still running at shutdown", len(remaining))
}
