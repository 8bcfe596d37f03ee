// Package overlap detects spatial conflicts between live scene objects and
// schedules automatic corrections.
//
// # Detection
//
// Every object is modelled as a circular footprint. [CircleOverlapArea]
// computes the exact lens area of two circles, and the overlap ratio is that
// area over the area of the smaller footprint. Ratios map to a [Severity]:
// above 0.8 is critical, above 0.5 high, above 0.2 medium, anything else low.
//
// # Actions
//
// [SuggestAction] is deliberately conservative. Only critical overlaps, or
// high overlaps between two text objects, are corrected automatically;
// everything else is logged and reported to event handlers. Hiding
// mathematical content is worse than a partial visual overlap.
//
// # Monitor and Scheduler
//
// A [Monitor] runs one goroutine that ticks at [Config.CheckInterval], takes
// a registry snapshot and emits an [Event] for every pair that is new or has
// escalated. Auto-correctable events become [Task]s on a [Scheduler], which
// bounds concurrent corrections with a weighted semaphore and never runs two
// tasks against the same object at once.
//
// A tick that fails, including one that panics, is logged and the loop
// continues with the next tick.
package overlap
