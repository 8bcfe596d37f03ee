// Package placement decides where a new scene object should go.
//
// An [Engine] is read-only over a snapshot of the scene: it never mutates
// objects, it only proposes a [Result]. Placement runs in three steps:
//
//  1. Fast paths. An explicit position hint with no collision risk is honoured
//     as-is, and an empty scene places the object at the screen centre.
//  2. Strategies. A category-specific list of strategies is tried in order;
//     the first candidate whose confidence reaches [Config.ConfidenceFloor]
//     wins.
//  3. Fallback. If nothing qualifies the object goes to the screen centre
//     with confidence 0.1. Placement never fails.
//
// # Strategies
//
//   - [StrategyEmptyRegion] rasterizes the screen, flood-fills the free cells
//     and picks the best-scoring empty region.
//   - [StrategyGrid] puts the Nth object of a category into row N/cols,
//     column N%cols of a fixed layout.
//   - [StrategySpiral] walks outward from the centre until collision risk
//     drops below a threshold.
//   - [StrategyForce] relaxes the position under inverse-square repulsion
//     and a weak pull toward the centre.
//   - [StrategyTextStack] stacks text rows downward and shifts sideways
//     around text already on the same row.
//   - [StrategyCameraAdjust] takes the least crowded sample point and always
//     asks the camera to zoom out.
//
// # Collision Risk
//
// Risk for a candidate point is 1 − d/threshold for the closest object, where
// threshold is the sum of both footprint radii plus [Config.CollisionMargin],
// and 0 when every object is at least threshold away. See [CollisionRisk].
//
// Whatever strategy wins, the returned position lies inside the screen
// bounds.
package placement
