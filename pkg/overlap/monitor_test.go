package overlap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/registry"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func place(t *testing.T, reg *registry.Registry, id string, c scene.Category, r, x, y float64) {
	t.Helper()
	if _, err := reg.Register(scene.NewObject(id, c, scene.Circle(r)).At(r3.Vec{X: x, Y: y}), 0); err != nil {
		t.Fatal(err)
	}
}

func TestTickEmitsCriticalEvent(t *testing.T) {
	reg := registry.New()
	place(t, reg, "a", scene.CategoryShape, 1, 0, 0)
	place(t, reg, "b", scene.CategoryShape, 1, 0.5, 0)

	m := NewMonitor(reg, nil, DefaultConfig(), nil)
	events, err := m.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Severity != SeverityCritical || ev.Ratio <= 0.8 {
		t.Errorf("event severity %v ratio %v, want critical > 0.8", ev.Severity, ev.Ratio)
	}
	if ev.Action != ActionImmediateFadeOut || ev.Subject != "b" {
		t.Errorf("event action %v on %q, want immediate_fade_out on b", ev.Action, ev.Subject)
	}
	if ev.ID == "" {
		t.Error("event has no id")
	}

	// Same pair at the same severity is not reported again.
	if events, _ := m.Tick(context.Background()); len(events) != 0 {
		t.Errorf("second tick emitted %d events, want 0", len(events))
	}
	if got := len(m.Events()); got != 1 {
		t.Errorf("history has %d events, want 1", got)
	}
}

func TestTickReportsEscalation(t *testing.T) {
	reg := registry.New()
	place(t, reg, "a", scene.CategoryShape, 1, 0, 0)
	place(t, reg, "b", scene.CategoryShape, 1, 3.5, 0)

	m := NewMonitor(reg, nil, DefaultConfig(), nil)
	first, _ := m.Tick(context.Background())
	if len(first) != 1 || first[0].Severity != SeverityLow {
		t.Fatalf("first tick = %+v, want one low event", first)
	}

	_ = reg.Move("b", r3.Vec{X: 0.3})
	second, _ := m.Tick(context.Background())
	if len(second) != 1 || second[0].Severity != SeverityCritical {
		t.Fatalf("second tick = %+v, want one critical event", second)
	}

	// Separating the pair forgets it, so a later overlap is reported anew.
	_ = reg.Move("b", r3.Vec{X: 6})
	if ev, _ := m.Tick(context.Background()); len(ev) != 0 {
		t.Fatalf("separated pair emitted %d events", len(ev))
	}
	_ = reg.Move("b", r3.Vec{X: 3.5})
	if ev, _ := m.Tick(context.Background()); len(ev) != 1 {
		t.Errorf("re-overlap emitted %d events, want 1", len(ev))
	}
}

type panicSource struct{}

func (panicSource) Snapshot() registry.Snapshot { panic("snapshot exploded") }

func TestTickRecoversPanic(t *testing.T) {
	m := NewMonitor(panicSource{}, nil, DefaultConfig(), nil)
	_, err := m.Tick(context.Background())
	if !errors.Is(err, errors.ErrCodeMonitorTick) {
		t.Fatalf("Tick error = %v, want MONITOR_TICK", err)
	}
	if s := m.Stats(); s.TickErrors != 1 || s.Ticks != 1 {
		t.Errorf("Stats = %+v, want one failed tick", s)
	}
}

func TestMonitorLoopSurvivesBadTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	m := NewMonitor(panicSource{}, nil, cfg, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "three failed ticks", func() bool { return m.Stats().TickErrors >= 3 })
	if !m.Running() {
		t.Error("monitor stopped after a failed tick")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestMonitorStartStop(t *testing.T) {
	reg := registry.New()
	place(t, reg, "a", scene.CategoryShape, 1, 0, 0)
	place(t, reg, "b", scene.CategoryShape, 1, 0.5, 0)

	cfg := DefaultConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.AutoCorrect = false
	m := NewMonitor(reg, NewScheduler(cfg, nil, nil), cfg, nil)

	var got atomic.Int32
	m.OnEvent(func(Event) { got.Add(1) })

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	waitFor(t, "event callback", func() bool { return got.Load() == 1 })

	start := time.Now()
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > cfg.CheckInterval+100*time.Millisecond {
		t.Errorf("Stop took %v, want about one interval", elapsed)
	}
	if m.Running() {
		t.Error("monitor still running after Stop")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestMonitorStopsOnContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	m := NewMonitor(registry.New(), nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	// Stop still joins the loop goroutine.
	if err := m.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestAutoCorrectionMarksEvent(t *testing.T) {
	reg := registry.New()
	place(t, reg, "a", scene.CategoryShape, 1, 0, 0)
	place(t, reg, "b", scene.CategoryShape, 1, 0.5, 0)

	fader := fakeFader{reg: reg}
	cfg := DefaultConfig()
	sched := NewScheduler(cfg, NewSceneCorrector(reg, fader, scene.DefaultScreen, cfg), nil)
	m := NewMonitor(reg, sched, cfg, nil)

	events, err := m.Tick(context.Background())
	if err != nil || len(events) != 1 {
		t.Fatalf("Tick = %d events, %v", len(events), err)
	}
	if !events[0].AutoCorrected || events[0].TaskID == "" {
		t.Fatalf("event not scheduled: %+v", events[0])
	}
	waitFor(t, "correction applied", func() bool {
		ev := m.Events()
		return len(ev) == 1 && ev[0].CorrectionApplied
	})
	if o, _ := reg.Get("b"); o.Visible {
		t.Error("newer object should be hidden after fade-out correction")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s := m.Stats(); s.Scheduler.Completed != 1 {
		t.Errorf("scheduler stats = %+v, want 1 completed", s.Scheduler)
	}
}

type fakeFader struct{ reg *registry.Registry }

func (f fakeFader) FadeOut(_ context.Context, id string) error {
	return f.reg.UpdateVisibility(id, false, 0)
}

// =============================================================================
// Scheduler
// =============================================================================

func fadeEvent(subject string) Event {
	return Event{ID: "ev-" + subject, A: "anchor-" + subject, B: subject, Subject: subject, Action: ActionImmediateFadeOut}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		cur     int
		peak    int
		objects = map[string]int{}
		release = make(chan struct{})
	)
	c := CorrectorFunc(func(ctx context.Context, task Task) error {
		mu.Lock()
		cur++
		peak = max(peak, cur)
		for _, id := range task.Targets {
			objects[id]++
			if objects[id] > 1 {
				t.Errorf("object %s corrected concurrently", id)
			}
		}
		mu.Unlock()

		select {
		case <-release:
		case <-ctx.Done():
		}

		mu.Lock()
		cur--
		for _, id := range task.Targets {
			objects[id]--
		}
		mu.Unlock()
		return nil
	})

	cfg := DefaultConfig()
	s := NewScheduler(cfg, c, nil)
	for i := range 10 {
		if _, err := s.Submit(fadeEvent(fmt.Sprintf("o%d", i))); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	waitFor(t, "pool saturation", func() bool { return s.Stats().Applying == cfg.MaxConcurrentCorrections })

	// A second task for an object under correction is skipped.
	if _, err := s.Submit(fadeEvent("o0")); !errors.Is(err, errors.ErrCodeAlreadyCorrecting) {
		t.Errorf("duplicate Submit error = %v, want ALREADY_CORRECTING", err)
	}

	close(release)
	waitFor(t, "all tasks finished", func() bool { return s.Stats().Completed == 10 })

	mu.Lock()
	defer mu.Unlock()
	if peak > cfg.MaxConcurrentCorrections {
		t.Errorf("peak concurrency %d exceeds %d", peak, cfg.MaxConcurrentCorrections)
	}
	st := s.Stats()
	if st.PeakApplying > cfg.MaxConcurrentCorrections || st.Skipped != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Busy("o0") {
		t.Error("object still marked busy after completion")
	}
}

func TestSchedulerCancelPending(t *testing.T) {
	release := make(chan struct{})
	c := CorrectorFunc(func(ctx context.Context, _ Task) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	cfg := DefaultConfig()
	cfg.MaxConcurrentCorrections = 1
	s := NewScheduler(cfg, c, nil)

	first, _ := s.Submit(fadeEvent("a"))
	waitFor(t, "first applying", func() bool { return s.Stats().Applying == 1 })
	second, _ := s.Submit(fadeEvent("b"))

	if err := s.Cancel(first.ID); err == nil {
		t.Error("cancelling an applying task should fail")
	}
	if err := s.Cancel(second.ID); err != nil {
		t.Fatalf("Cancel pending: %v", err)
	}
	waitFor(t, "cancelled task finished", func() bool { return s.Stats().Failed == 1 })
	close(release)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	var cancelled Task
	for _, task := range s.Finished() {
		if task.ID == second.ID {
			cancelled = task
		}
	}
	if cancelled.Status != StatusFailed || cancelled.Started != (time.Time{}) {
		t.Errorf("cancelled task = %+v, want failed without starting", cancelled)
	}
	if _, err := s.Submit(fadeEvent("c")); !errors.Is(err, errors.ErrCodeNotRunning) {
		t.Errorf("Submit after Shutdown = %v, want NOT_RUNNING", err)
	}
}

func TestStopWithApplyingTasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 20 * time.Millisecond
	cfg.CorrectionTimeout = 150 * time.Millisecond

	// One task finishes shortly after Stop, the other never does on its own.
	c := CorrectorFunc(func(ctx context.Context, task Task) error {
		if task.Subject == "quick" {
			time.Sleep(30 * time.Millisecond)
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	})
	sched := NewScheduler(cfg, c, nil)
	m := NewMonitor(registry.New(), sched, cfg, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, _ = sched.Submit(fadeEvent("quick"))
	_, _ = sched.Submit(fadeEvent("stuck"))
	waitFor(t, "two applying", func() bool { return sched.Stats().Applying == 2 })

	start := time.Now()
	_ = m.Stop(context.Background())
	elapsed := time.Since(start)

	if m.Running() {
		t.Error("loop still running after Stop")
	}
	if elapsed > cfg.CorrectionTimeout+100*time.Millisecond {
		t.Errorf("Stop took %v, want within correction timeout %v", elapsed, cfg.CorrectionTimeout)
	}
	status := map[string]Status{}
	for _, task := range sched.Finished() {
		status[task.Subject] = task.Status
	}
	if status["quick"] != StatusCompleted {
		t.Errorf("quick task = %v, want completed", status["quick"])
	}
	if status["stuck"] != StatusFailed {
		t.Errorf("stuck task = %v, want failed", status["stuck"])
	}
	if len(sched.Active()) != 0 {
		t.Errorf("%d tasks still active", len(sched.Active()))
	}
	// Let the stuck corrector observe its deadline before leak checks.
	waitFor(t, "targets released", func() bool { return !sched.Busy("stuck") })
}

func TestSchedulerRecoversCorrectorPanic(t *testing.T) {
	s := NewScheduler(DefaultConfig(), CorrectorFunc(func(context.Context, Task) error {
		panic("boom")
	}), nil)
	if _, err := s.Submit(fadeEvent("x")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "failed task", func() bool { return s.Stats().Failed == 1 })
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.Finished()[0].Error; got == "" {
		t.Error("panic should be recorded as the task error")
	}
}
