package overlap

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/registry"
)

// Source provides consistent scene snapshots. *registry.Registry satisfies it.
type Source interface {
	Snapshot() registry.Snapshot
}

// Stats summarises monitor activity.
type Stats struct {
	Running    bool           `json:"running"`
	Ticks      uint64         `json:"ticks"`
	TickErrors uint64         `json:"tick_errors"`
	Events     int            `json:"events"`
	BySeverity map[string]int `json:"by_severity"`
	Active     int            `json:"active_pairs"`
	Scheduler  SchedulerStats `json:"scheduler"`
	LastTick   time.Time      `json:"last_tick,omitzero"`
}

// Monitor watches a scene for overlaps on a fixed interval.
type Monitor struct {
	src    Source
	sched  *Scheduler
	cfg    Config
	logger *log.Logger

	mu       sync.Mutex
	events   []Event
	byTask   map[string]int  // task id -> index in events
	early    map[string]bool // tasks that completed before their event was recorded
	active   map[pairKey]Severity
	handlers []func(Event)
	ticks    uint64
	tickErrs uint64
	lastTick time.Time

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor over src. sched may be nil, in which case
// events are reported but never corrected.
func NewMonitor(src Source, sched *Scheduler, cfg Config, logger *log.Logger) *Monitor {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Monitor{
		src:    src,
		sched:  sched,
		cfg:    cfg,
		logger: logger,
		byTask: make(map[string]int),
		early:  make(map[string]bool),
		active: make(map[pairKey]Severity),
	}
	if sched != nil {
		sched.OnDone(m.markApplied)
	}
	return m
}

// OnEvent registers fn to receive every emitted event. Handlers run on the
// monitor goroutine and must not block.
func (m *Monitor) OnEvent(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Start launches the tick loop. It returns an error if the monitor is
// already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New(errors.ErrCodeInvalidInput, "monitor already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(ctx, m.stopCh, m.doneCh)
	m.logger.Info("overlap monitor started", "interval", m.cfg.CheckInterval)
	return nil
}

func (m *Monitor) loop(ctx context.Context, stop, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.doneCh == done {
			m.running = false
		}
		m.mu.Unlock()
		close(done)
	}()
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("monitor stopping: context done")
			return
		case <-stop:
			m.logger.Debug("monitor stopping: stop requested")
			return
		case <-ticker.C:
			if _, err := m.Tick(ctx); err != nil {
				m.logger.Warn("monitor tick failed", "err", err)
			}
		}
	}
}

// Stop halts the tick loop and shuts the scheduler down: pending tasks are
// cancelled and applying tasks awaited for up to CorrectionTimeout. Stop is
// safe to call when the monitor is not running.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		close(m.stopCh)
		m.running = false
	}
	done := m.doneCh
	m.mu.Unlock()

	if done != nil {
		<-done
		m.logger.Info("overlap monitor stopped")
	}
	if m.sched == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CorrectionTimeout)
	defer cancel()
	return m.sched.Shutdown(ctx)
}

// Running reports whether the tick loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Tick runs one detection pass and returns the events it emitted. A pair
// emits an event when it first overlaps and again each time its severity
// rises; pairs that stop overlapping are forgotten. A panic during the pass
// is returned as a MONITOR_TICK error.
func (m *Monitor) Tick(ctx context.Context) (emitted []Event, err error) {
	start := time.Now()
	var objects, overlaps int
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeMonitorTick, "tick panic: %v", r)
		}
		m.mu.Lock()
		m.ticks++
		m.lastTick = start
		if err != nil {
			m.tickErrs++
		}
		m.mu.Unlock()
		observability.Monitor().OnTick(ctx, objects, overlaps, time.Since(start), err)
	}()

	snap := m.src.Snapshot()
	found := Detect(snap.Objects, m.cfg.FootprintScale)
	objects, overlaps = len(snap.Objects), len(found)

	seen := make(map[pairKey]bool, len(found))
	for _, ov := range found {
		key := keyOf(ov.A.ID, ov.B.ID)
		seen[key] = true

		m.mu.Lock()
		prev, known := m.active[key]
		m.active[key] = ov.Severity
		m.mu.Unlock()
		if known && ov.Severity <= prev {
			continue
		}

		ev := NewEvent(ov, start)
		if m.cfg.AutoCorrect && m.sched != nil && ev.Action.AutoCorrects() {
			task, serr := m.sched.Submit(ev)
			if serr == nil {
				ev.AutoCorrected = true
				ev.TaskID = task.ID
			} else {
				m.logger.Debug("correction not scheduled", "a", ev.A, "b", ev.B, "err", serr)
			}
		}
		m.record(ev)
		emitted = append(emitted, ev)

		lvl := log.DebugLevel
		if ev.Severity >= SeverityHigh {
			lvl = log.InfoLevel
		}
		m.logger.Log(lvl, "overlap detected",
			"a", ev.A, "b", ev.B, "severity", ev.Severity, "ratio", ev.Ratio, "action", ev.Action)
		observability.Monitor().OnOverlap(ctx, ev.Severity.String(), string(ev.Action))
	}

	m.mu.Lock()
	for key := range m.active {
		if !seen[key] {
			delete(m.active, key)
		}
	}
	handlers := append([]func(Event){}, m.handlers...)
	m.mu.Unlock()

	for _, ev := range emitted {
		for _, fn := range handlers {
			fn(ev)
		}
	}
	return emitted, nil
}

func (m *Monitor) record(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.early[ev.TaskID] {
		ev.CorrectionApplied = true
		delete(m.early, ev.TaskID)
	}
	m.events = append(m.events, ev)
	if over := len(m.events) - m.cfg.HistoryLimit; over > 0 {
		m.events = m.events[over:]
		m.byTask = make(map[string]int, len(m.events))
		for i, e := range m.events {
			if e.TaskID != "" {
				m.byTask[e.TaskID] = i
			}
		}
	} else if ev.TaskID != "" {
		m.byTask[ev.TaskID] = len(m.events) - 1
	}
}

// markApplied flags the event behind a completed task.
func (m *Monitor) markApplied(t Task) {
	if t.Status != StatusCompleted {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byTask[t.ID]; ok {
		m.events[i].CorrectionApplied = true
		return
	}
	m.early[t.ID] = true
}

// Events returns a copy of the event history, oldest first.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Scheduler returns the monitor's scheduler, or nil.
func (m *Monitor) Scheduler() *Scheduler { return m.sched }

// Stats summarises monitor and scheduler activity.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	s := Stats{
		Running:    m.running,
		Ticks:      m.ticks,
		TickErrors: m.tickErrs,
		Events:     len(m.events),
		BySeverity: make(map[string]int),
		Active:     len(m.active),
		LastTick:   m.lastTick,
	}
	for _, e := range m.events {
		s.BySeverity[e.Severity.String()]++
	}
	m.mu.Unlock()
	if m.sched != nil {
		s.Scheduler = m.sched.Stats()
	}
	return s
}
