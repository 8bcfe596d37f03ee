// Package registry implements the authoritative, mutation-guarded store of
// scene object state.
//
// Every other component either reads a [Snapshot] or routes a targeted
// mutation request (move, visibility change, removal) through a [Registry]
// method. Mutations are serialized by a single mutex, and snapshots are deep
// copies taken under that mutex, so a reader never observes a half-updated
// object.
//
// Operations on unknown ids return a NOT_FOUND *errors.Error; registering an
// id twice returns DUPLICATE_ID. Neither is fatal: callers inspect the code
// with errors.Is and decide. Removal callers treat NOT_FOUND as already done.
//
// Each mutation appends a compact [Entry] to a bounded history log that feeds
// [Registry.Stats].
package registry

import (
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// DefaultHistoryLimit caps the in-memory mutation log.
const DefaultHistoryLimit = 1000

// Action names recorded in the history log.
const (
	ActionRegister    = "register"
	ActionRemove      = "remove"
	ActionMove        = "move"
	ActionScale       = "scale"
	ActionVisibility  = "visibility"
	ActionFade        = "fade"
	ActionDelay       = "delay"
	ActionPersistence = "persistence"
)

// Entry is one record of the mutation history.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Action   string    `json:"action"`
	ObjectID string    `json:"object_id"`
	At       time.Time `json:"at"`
}

// Snapshot is a consistent copy of the registry at one instant. Objects are
// ordered by creation sequence.
type Snapshot struct {
	Objects []scene.Object
	Version uint64
	TakenAt time.Time
}

// Get returns the object with the given id from the snapshot.
func (s Snapshot) Get(id string) (scene.Object, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return scene.Object{}, false
}

// Stats summarises the registry contents and its mutation history.
type Stats struct {
	Objects    int                    `json:"objects"`
	Visible    int                    `json:"visible"`
	ByCategory map[scene.Category]int `json:"by_category"`
	Actions    map[string]int         `json:"actions"`
	Version    uint64                 `json:"version"`
}

// Registry is the authoritative store of scene objects. The zero value is not
// usable; construct one with [New].
type Registry struct {
	mu      sync.RWMutex
	objects map[string]*scene.Object
	order   []string
	seq     uint64 // creation sequence for CreatedAt
	version uint64 // bumped on every mutation
	history []Entry
	limit   int
	nowFn   func() time.Time
	logger  *log.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHistoryLimit sets the maximum number of history entries retained.
func WithHistoryLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.nowFn = now
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		objects: make(map[string]*scene.Object),
		limit:   DefaultHistoryLimit,
		nowFn:   time.Now,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a copy of obj with the given z-order and assigns its
// creation sequence. The stored copy is returned.
func (r *Registry) Register(obj scene.Object, zOrder int) (scene.Object, error) {
	if err := errors.ValidateObjectID(obj.ID); err != nil {
		return scene.Object{}, err
	}
	if !obj.Size.Valid() {
		return scene.Object{}, errors.New(errors.ErrCodeInvalidScene, "object %q has an invalid size", obj.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[obj.ID]; ok {
		return scene.Object{}, errors.New(errors.ErrCodeDuplicateID, "object %q already registered", obj.ID)
	}

	stored := obj.Clone()
	if stored.Scale == 0 {
		stored.Scale = 1
	}
	stored.ZOrder = zOrder
	r.seq++
	stored.CreatedAt = r.seq
	stored.Refresh()

	r.objects[stored.ID] = &stored
	r.order = append(r.order, stored.ID)
	r.record(ActionRegister, stored.ID)

	r.logger.Debug("registered object", "id", stored.ID, "category", stored.Category, "z", zOrder)
	return stored.Clone(), nil
}

// Get returns a copy of the object with the given id.
func (r *Registry) Get(id string) (scene.Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[id]
	if !ok {
		return scene.Object{}, false
	}
	return o.Clone(), true
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// ListByCategory returns copies of every object of category c in creation order.
func (r *Registry) ListByCategory(c scene.Category) []scene.Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []scene.Object
	for _, id := range r.order {
		if o := r.objects[id]; o.Category == c {
			out = append(out, o.Clone())
		}
	}
	return out
}

// CreationOrder returns object ids in the order they were registered.
func (r *Registry) CreationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Snapshot returns a consistent deep copy of every object.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	objs := make([]scene.Object, 0, len(r.order))
	for _, id := range r.order {
		objs = append(objs, r.objects[id].Clone())
	}
	return Snapshot{Objects: objs, Version: r.version, TakenAt: r.nowFn()}
}

// Remove deletes the object. Unknown ids return NOT_FOUND, which callers treat
// as already removed.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[id]; !ok {
		return errors.NotFound(id)
	}
	delete(r.objects, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.record(ActionRemove, id)
	r.logger.Debug("removed object", "id", id)
	return nil
}

// UpdateVisibility sets the visible flag and opacity. Opacity is clamped to [0, 1].
func (r *Registry) UpdateVisibility(id string, visible bool, opacity float64) error {
	if math.IsNaN(opacity) {
		return errors.New(errors.ErrCodeInvalidInput, "opacity for %q is NaN", id)
	}
	return r.mutate(id, ActionVisibility, func(o *scene.Object) {
		o.Visible = visible
		o.Opacity = math.Min(math.Max(opacity, 0), 1)
	})
}

// SetFadeInProgress marks whether a fade animation is running on the object.
func (r *Registry) SetFadeInProgress(id string, inProgress bool) error {
	return r.mutate(id, ActionFade, func(o *scene.Object) {
		o.FadeInProgress = inProgress
	})
}

// Move sets the object's position and refreshes its bounding box.
func (r *Registry) Move(id string, p r3.Vec) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "position for %q is not finite", id)
	}
	return r.mutate(id, ActionMove, func(o *scene.Object) {
		o.Position = p
		o.Refresh()
	})
}

// SetScale sets the object's scale factor and refreshes its bounding box.
func (r *Registry) SetScale(id string, scale float64) error {
	if math.IsNaN(scale) || scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale for %q must be non-negative", id)
	}
	return r.mutate(id, ActionScale, func(o *scene.Object) {
		o.Scale = scale
		o.Refresh()
	})
}

// SetAppearDelay sets the pre-delay inserted before the object appears.
func (r *Registry) SetAppearDelay(id string, d time.Duration) error {
	return r.mutate(id, ActionDelay, func(o *scene.Object) {
		o.AppearDelay = max(d, 0)
	})
}

// SetPersistent marks the object as persistent (never auto-removed) or transient.
func (r *Registry) SetPersistent(id string, persistent bool) error {
	return r.mutate(id, ActionPersistence, func(o *scene.Object) {
		o.Persistent = persistent
	})
}

// History returns a copy of the retained mutation log, oldest first.
func (r *Registry) History() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history)
}

// Stats summarises the current contents and retained history.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{
		Objects:    len(r.objects),
		ByCategory: make(map[scene.Category]int),
		Actions:    make(map[string]int),
		Version:    r.version,
	}
	for _, o := range r.objects {
		s.ByCategory[o.Category]++
		if o.Visible {
			s.Visible++
		}
	}
	for _, e := range r.history {
		s.Actions[e.Action]++
	}
	return s
}

// mutate applies fn to the stored object under the write lock.
func (r *Registry) mutate(id, action string, fn func(*scene.Object)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.objects[id]
	if !ok {
		return errors.NotFound(id)
	}
	fn(o)
	r.record(action, id)
	return nil
}

// record appends a history entry. Caller must hold the write lock.
func (r *Registry) record(action, id string) {
	r.version++
	r.history = append(r.history, Entry{Seq: r.version, Action: action, ObjectID: id, At: r.nowFn()})
	if over := len(r.history) - r.limit; over > 0 {
		r.history = slices.Delete(r.history, 0, over)
	}
}
