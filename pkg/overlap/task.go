package overlap

import (
	"time"
)

// Status is the lifecycle state of a correction task.
//
//	pending → applying → completed | failed
//
// A task can be cancelled only while pending; cancellation ends it as
// failed with a CANCELLED error.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplying  Status = "applying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Final reports whether no further transitions are possible.
func (s Status) Final() bool { return s == StatusCompleted || s == StatusFailed }

// Task is one scheduled correction.
type Task struct {
	ID       string        `json:"id" bson:"_id"`
	EventID  string        `json:"event_id" bson:"event_id"`
	Targets  []string      `json:"targets" bson:"targets"`
	Subject  string        `json:"subject" bson:"subject"`
	Other    string        `json:"other" bson:"other"`
	Action   Action        `json:"action" bson:"action"`
	Status   Status        `json:"status" bson:"status"`
	Created  time.Time     `json:"created" bson:"created"`
	Started  time.Time     `json:"started,omitzero" bson:"started,omitempty"`
	Finished time.Time     `json:"finished,omitzero" bson:"finished,omitempty"`
	Timeout  time.Duration `json:"timeout" bson:"timeout"`
	Error    string        `json:"error,omitempty" bson:"error,omitempty"`
}

func (t Task) clone() Task {
	t.Targets = append([]string(nil), t.Targets...)
	return t
}
