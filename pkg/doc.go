// Package pkg provides the libraries behind sceneguard, a layout and overlap
// guard for programmatic animation scenes.
//
// # Overview
//
// Sceneguard places visual elements (shapes, text, curves, axes, points) on
// a bounded canvas, watches the scene for spatial conflicts while it evolves,
// and corrects those conflicts in the background. The pkg directory is
// organized into four areas:
//
//  1. Scene model: [scene] types and descriptor files, the [registry] that
//     owns object state
//  2. Decisions: [placement], [camera], [overlap] detection and correction,
//     [fadeout] removal
//  3. Orchestration: [pipeline] runs the layout workflow, [api] serves it
//     over HTTP
//  4. Infrastructure: [cache], [store], [config], [render], [observability],
//     [errors], [buildinfo]
//
// # Architecture
//
//	scene file (JSON/YAML/TOML)
//	         ↓
//	    [scene] descriptors → objects
//	         ↓
//	    [pipeline] analyze → position → sweep → sequence → frame → validate
//	         ↓                    ↑
//	    [registry] ←───── [placement], [camera]
//	         ↓
//	    [overlap] monitor → scheduler → corrections
//	         ↓
//	    layout.json, [store] runs and events, [render] plots
//
// # Quick Start
//
//	f, _ := scene.ReadDescriptors("scene.yaml")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Execute(ctx, f.ObjectList(), pipeline.Options{StartMonitor: true})
//	if err != nil {
//	    return err
//	}
//	defer res.Stop(context.Background())
//
// # Main Packages
//
// [scene] - Categories, bounding boxes, objects and the descriptor files they
// are read from.
//
// [registry] - The single owner of object state. Every mutation goes through
// it and hands out copies.
//
// [placement] - Chooses a position for each new object from a hint, free
// regions and category conventions, scoring the risk of each choice.
//
// [overlap] - Circle-footprint geometry, severity classification, the
// periodic monitor and the bounded correction scheduler.
//
// [fadeout] - Removes objects through ordered strategy chains, refusing
// persistent ones.
//
// [pipeline] - The seven-phase layout workflow with layout caching.
//
// [api] - HTTP API over live and stored scenes.
//
// [cache], [store] - Layout caching (file, Redis) and run persistence
// (memory, file, MongoDB).
//
// [render] - Scene footprint plots and Graphviz conflict graphs.
package pkg
