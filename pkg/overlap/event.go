package overlap

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Event records one detected conflict. Events are immutable once emitted
// except for AutoCorrected, set when a task is scheduled, and
// CorrectionApplied, set when that task completes.
type Event struct {
	ID                string         `json:"id" bson:"_id"`
	A                 string         `json:"a" bson:"a"`
	B                 string         `json:"b" bson:"b"`
	CategoryA         scene.Category `json:"category_a" bson:"category_a"`
	CategoryB         scene.Category `json:"category_b" bson:"category_b"`
	Area              float64        `json:"area" bson:"area"`
	Ratio             float64        `json:"ratio" bson:"ratio"`
	Distance          float64        `json:"distance" bson:"distance"`
	Severity          Severity       `json:"severity" bson:"severity"`
	Action            Action         `json:"action" bson:"action"`
	Subject           string         `json:"subject,omitempty" bson:"subject,omitempty"`
	At                time.Time      `json:"at" bson:"at"`
	AutoCorrected     bool           `json:"auto_corrected" bson:"auto_corrected"`
	CorrectionApplied bool           `json:"correction_applied" bson:"correction_applied"`
	TaskID            string         `json:"task_id,omitempty" bson:"task_id,omitempty"`
}

// NewEvent builds an event for ov with a fresh id.
func NewEvent(ov Overlap, at time.Time) Event {
	action, subject := SuggestAction(ov.Severity, ov.A, ov.B)
	return Event{
		ID:        uuid.NewString(),
		A:         ov.A.ID,
		B:         ov.B.ID,
		CategoryA: ov.A.Category,
		CategoryB: ov.B.Category,
		Area:      ov.Area,
		Ratio:     ov.Ratio,
		Distance:  ov.Distance,
		Severity:  ov.Severity,
		Action:    action,
		Subject:   subject,
		At:        at,
	}
}

// Other returns the participant that is not the subject.
func (e Event) Other() string {
	if e.Subject == e.A {
		return e.B
	}
	return e.A
}

// pairKey identifies an unordered object pair.
type pairKey struct{ lo, hi string }

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}
