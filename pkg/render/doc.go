// Package render produces diagnostic images of a scene.
//
// # Overview
//
// Two views are available. Neither renders the animation itself; both exist
// to make a layout or a monitoring session easy to inspect.
//
//   - [PlotScene] draws every footprint on the screen rectangle as a scatter
//     plot (PNG or SVG) using gonum/plot.
//   - [ConflictDOT] turns overlap events into an undirected Graphviz graph
//     where objects are nodes and conflicts are edges coloured by severity.
//     [RenderSVG] renders it in-process.
//
// # Usage
//
//	png, err := render.PlotScene(objs, scene.DefaultScreen, render.PlotOptions{})
//
//	dot := render.ConflictDOT(objs, monitor.Events(), render.DOTOptions{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Dependencies
//
// [RenderSVG] uses [github.com/goccy/go-graphviz], which runs Graphviz as
// WebAssembly, so no system Graphviz install is needed.
package render
