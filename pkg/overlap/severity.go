package overlap

import (
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Severity grades an overlap ratio. Values are ordered, so escalation is a
// plain comparison.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name. Unknown names are INVALID_INPUT.
func (s *Severity) UnmarshalText(b []byte) error {
	for k, v := range severityNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown severity %q", b)
}

// Classify maps an overlap ratio to a severity.
func Classify(ratio float64) Severity {
	switch {
	case ratio > 0.8:
		return SeverityCritical
	case ratio > 0.5:
		return SeverityHigh
	case ratio > 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Action is the correction suggested for an overlap.
type Action string

const (
	ActionTextReposition   Action = "text_reposition"
	ActionImmediateFadeOut Action = "immediate_fade_out"
	ActionTimingAdjustment Action = "timing_adjustment"
	ActionMonitorOnly      Action = "monitoring_only"
)

// AutoCorrects reports whether the action is ever applied automatically.
func (a Action) AutoCorrects() bool { return a != ActionMonitorOnly }

// SuggestAction picks the correction for an overlap of severity s between a
// and b, together with the id of the object the correction acts on.
func SuggestAction(s Severity, a, b scene.Object) (Action, string) {
	aText := a.Category == scene.CategoryText
	bText := b.Category == scene.CategoryText
	newer := scene.Newer(a, b)

	switch {
	case s == SeverityCritical && (aText || bText):
		if aText && bText {
			return ActionTextReposition, newer.ID
		}
		if aText {
			return ActionTextReposition, a.ID
		}
		return ActionTextReposition, b.ID
	case s == SeverityCritical && !newer.Persistent:
		return ActionImmediateFadeOut, newer.ID
	case s == SeverityCritical:
		return ActionTimingAdjustment, newer.ID
	case s == SeverityHigh && aText && bText:
		return ActionTextReposition, newer.ID
	}
	return ActionMonitorOnly, ""
}
