// Package fadeout removes objects from a live scene and proves they are gone.
//
// A [Coordinator] tries an ordered chain of primary strategies per object
// (standard fade, gradual opacity ramp, instant hide, scale-to-zero) until
// one succeeds. With validation on, any object that still looks present
// afterwards gets an escalation pass (forced removal, then off-screen
// displacement). Objects that survive every strategy are reported in
// [Report.Failed] with their attempt count; nothing is dropped silently.
//
// An object counts as removed when it is absent from the registry, or its
// opacity is at most [RemovedOpacity], or it is not visible, and it is not
// contradicted by a fade still running on a visible object. See
// [Coordinator.Validate].
//
// Whether removal is allowed at all is an opaque [Policy] flag decided
// upstream.
package fadeout
