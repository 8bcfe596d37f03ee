package fadeout

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Failure describes an object that could not be removed.
type Failure struct {
	ID       string `json:"id" bson:"id"`
	Attempts int    `json:"attempts" bson:"attempts"`
	Reason   string `json:"reason" bson:"reason"`
}

// Report is the outcome of one Remove call.
type Report struct {
	OperationID      string        `json:"operation_id" bson:"_id"`
	Requested        []string      `json:"requested" bson:"requested"`
	Succeeded        []string      `json:"succeeded" bson:"succeeded"`
	Failed           []Failure     `json:"failed" bson:"failed"`
	Escalated        []string      `json:"escalated,omitempty" bson:"escalated,omitempty"`
	ValidationPassed bool          `json:"validation_passed" bson:"validation_passed"`
	At               time.Time     `json:"at" bson:"at"`
	Duration         time.Duration `json:"duration" bson:"duration"`
}

// Operation is the statistics record kept for each Remove call.
type Operation struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	SuccessRatio float64   `json:"success_ratio"`
}

// Stats aggregates every recorded operation.
type Stats struct {
	Operations  int     `json:"operations"`
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	SuccessRate float64 `json:"success_rate"`
}

// Coordinator removes objects through ordered strategy chains.
type Coordinator struct {
	target     Target
	cfg        Config
	primary    []Strategy
	escalation []Strategy
	logger     *log.Logger

	mu  sync.Mutex
	ops []Operation
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStrategies replaces the primary and escalation chains.
func WithStrategies(primary, escalation []Strategy) Option {
	return func(c *Coordinator) {
		c.primary = primary
		c.escalation = escalation
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Coordinator over t.
func New(t Target, cfg Config, opts ...Option) *Coordinator {
	cfg.SetDefaults()
	c := &Coordinator{
		target:     t,
		cfg:        cfg,
		primary:    PrimaryStrategies(cfg),
		escalation: EscalationStrategies(),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remove hides or deletes every id. Ids already absent count as succeeded.
// With validate set, objects that do not pass validation after the primary
// chain are retried with the escalation chain.
func (c *Coordinator) Remove(ctx context.Context, ids []string, validate bool) Report {
	start := time.Now()
	r := Report{OperationID: uuid.NewString(), At: start}
	attempts := make(map[string]int)
	reasons := make(map[string]string)
	var retry []string

	for _, id := range ids {
		if slices.Contains(r.Requested, id) {
			continue
		}
		r.Requested = append(r.Requested, id)

		o, ok := c.target.Get(id)
		if !ok {
			r.Succeeded = append(r.Succeeded, id)
			continue
		}
		if err := c.refuse(id, o.Persistent); err != nil {
			r.Failed = append(r.Failed, Failure{ID: id, Reason: err.Error()})
			continue
		}

		n, err := c.runChain(ctx, c.primary, id)
		attempts[id] = n
		switch {
		case err != nil && !validate:
			r.Failed = append(r.Failed, Failure{ID: id, Attempts: n, Reason: err.Error()})
		case err != nil:
			reasons[id] = err.Error()
			retry = append(retry, id)
		case validate && !c.Validate([]string{id}):
			reasons[id] = "object still visible after primary chain"
			retry = append(retry, id)
		default:
			r.Succeeded = append(r.Succeeded, id)
		}
	}

	for _, id := range retry {
		n, err := c.runChain(ctx, c.escalation, id)
		attempts[id] += n
		if err == nil && c.Validate([]string{id}) {
			r.Succeeded = append(r.Succeeded, id)
			r.Escalated = append(r.Escalated, id)
			c.logger.Info("removal escalated", "id", id, "attempts", attempts[id])
			continue
		}
		reason := reasons[id]
		if err != nil {
			reason = err.Error()
		}
		r.Failed = append(r.Failed, Failure{ID: id, Attempts: attempts[id], Reason: reason})
		c.logger.Warn("object could not be removed", "id", id, "attempts", attempts[id], "reason", reason)
	}

	if validate {
		r.ValidationPassed = c.Validate(r.Requested)
	}
	r.Duration = time.Since(start)
	c.record(r)
	observability.Removal().OnRemoval(ctx, len(r.Requested), len(r.Succeeded), len(r.Escalated), r.Duration)
	c.logger.Debug("removal finished",
		"operation", r.OperationID, "succeeded", len(r.Succeeded), "failed", len(r.Failed), "validated", r.ValidationPassed)
	return r
}

// FadeOut removes a single object with validation. It fails with
// REMOVAL_REFUSED when the policy protects the object and with
// CORRECTION_FAILURE when the object survives every strategy.
func (c *Coordinator) FadeOut(ctx context.Context, id string) error {
	if o, ok := c.target.Get(id); ok {
		if err := c.refuse(id, o.Persistent); err != nil {
			return err
		}
	}
	r := c.Remove(ctx, []string{id}, true)
	if len(r.Failed) > 0 {
		return errors.New(errors.ErrCodeCorrectionFailure, "fade out %s after %d attempts: %s", id, r.Failed[0].Attempts, r.Failed[0].Reason)
	}
	return nil
}

func (c *Coordinator) refuse(id string, persistent bool) error {
	if !c.cfg.Policy.Allowed {
		return errors.New(errors.ErrCodeRemovalRefused, "removal of %s not allowed by policy", id)
	}
	if persistent && c.cfg.Policy.ProtectPersistent {
		return errors.New(errors.ErrCodeRemovalRefused, "%s is persistent", id)
	}
	return nil
}

// runChain tries strategies in order until one returns nil. It returns the
// number of strategies attempted and the last error.
func (c *Coordinator) runChain(ctx context.Context, chain []Strategy, id string) (int, error) {
	var last error = errors.New(errors.ErrCodeCorrectionFailure, "no strategies configured")
	for i, s := range chain {
		if err := ctx.Err(); err != nil {
			return i, errors.Wrap(errors.ErrCodeCancelled, err, "removal of %s cancelled", id)
		}
		o, ok := c.target.Get(id)
		if !ok {
			return i, nil
		}
		err := c.safeApply(ctx, s, o)
		if err == nil {
			c.logger.Debug("removal strategy succeeded", "id", id, "strategy", s.Name)
			return i + 1, nil
		}
		c.logger.Debug("removal strategy failed", "id", id, "strategy", s.Name, "err", err)
		last = errors.Wrap(errors.ErrCodeCorrectionFailure, err, "%s", s.Name)
	}
	return len(chain), last
}

func (c *Coordinator) safeApply(ctx context.Context, s Strategy, o scene.Object) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.ErrCodeCorrectionFailure, "strategy %s panicked: %v", s.Name, p)
		}
	}()
	return s.Apply(ctx, c.target, o)
}

// Validate reports whether every id is confirmed removed: absent, or at
// opacity RemovedOpacity or below, or not visible, with no fade still
// running on a visible object.
func (c *Coordinator) Validate(ids []string) bool {
	for _, id := range ids {
		o, ok := c.target.Get(id)
		if !ok {
			continue
		}
		if o.FadeInProgress && o.Visible {
			return false
		}
		if o.Opacity > RemovedOpacity && o.Visible {
			return false
		}
	}
	return true
}

func (c *Coordinator) record(r Report) {
	op := Operation{ID: r.OperationID, At: r.At, Total: len(r.Requested), Succeeded: len(r.Succeeded)}
	if op.Total > 0 {
		op.SuccessRatio = float64(op.Succeeded) / float64(op.Total)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
	if over := len(c.ops) - c.cfg.HistoryLimit; over > 0 {
		c.ops = c.ops[over:]
	}
}

// Operations returns the recorded operations, oldest first.
func (c *Coordinator) Operations() []Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ops)
}

// Stats aggregates the recorded operations. SuccessRate is
// succeeded/total over all requested objects, or 0 with no history.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s Stats
	for _, op := range c.ops {
		s.Operations++
		s.Total += op.Total
		s.Succeeded += op.Succeeded
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total)
	}
	return s
}
