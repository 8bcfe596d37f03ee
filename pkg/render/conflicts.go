package render

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// DOTOptions configures conflict graph generation.
type DOTOptions struct {
	// Detailed adds category and position to node labels and the overlap
	// ratio to edge labels.
	Detailed bool
	// IncludeIsolated keeps objects that take part in no conflict.
	IncludeIsolated bool
}

var categoryFill = map[scene.Category]string{
	scene.CategoryUnknown: "white",
	scene.CategoryShape:   "lightblue",
	scene.CategoryText:    "lightyellow",
	scene.CategoryCurve:   "palegreen",
	scene.CategoryAxes:    "lightgrey",
	scene.CategoryPoint:   "pink",
}

var severityColor = map[overlap.Severity]string{
	overlap.SeverityLow:      "grey60",
	overlap.SeverityMedium:   "goldenrod",
	overlap.SeverityHigh:     "darkorange",
	overlap.SeverityCritical: "red",
}

// ConflictDOT converts overlap events into Graphviz DOT source. Repeated
// events for the same pair collapse into one edge carrying the worst
// severity seen. Objects referenced by events but missing from objs are
// still drawn, without category styling.
func ConflictDOT(objs []scene.Object, events []overlap.Event, opts DOTOptions) string {
	edges := worstPerPair(events)

	involved := make(map[string]bool, 2*len(edges))
	for _, e := range edges {
		involved[e.A] = true
		involved[e.B] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	known := make(map[string]bool, len(objs))
	for _, o := range objs {
		known[o.ID] = true
		if !opts.IncludeIsolated && !involved[o.ID] {
			continue
		}
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(o, opts.Detailed)),
			fmt.Sprintf("fillcolor=%q", categoryFill[o.Category]),
		}
		if o.Persistent {
			attrs = append(attrs, "penwidth=2")
		}
		if !o.Visible {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fontcolor=grey50")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", o.ID, strings.Join(attrs, ", "))
	}
	for _, id := range slices.Sorted(maps.Keys(involved)) {
		if !known[id] {
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\"];\n", id, id)
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		attrs := []string{
			fmt.Sprintf("color=%q", severityColor[e.Severity]),
			fmt.Sprintf("penwidth=%.1f", 1+3*min(e.Ratio, 1)),
		}
		label := e.Severity.String()
		if opts.Detailed {
			label = fmt.Sprintf("%s\n%.0f%%", label, 100*e.Ratio)
		}
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
		if e.CorrectionApplied {
			attrs = append(attrs, "style=dashed")
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", e.A, e.B, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(o scene.Object, detailed bool) string {
	if !detailed {
		return o.ID
	}
	return fmt.Sprintf("%s\n%s\n(%.2f, %.2f)", o.ID, o.Category, o.Position.X, o.Position.Y)
}

// worstPerPair keeps one event per unordered pair, preferring higher
// severity and then the later event. The result is sorted by pair.
func worstPerPair(events []overlap.Event) []overlap.Event {
	byPair := make(map[[2]string]overlap.Event, len(events))
	applied := make(map[[2]string]bool)
	for _, ev := range events {
		if ev.B < ev.A {
			ev.A, ev.B = ev.B, ev.A
		}
		k := [2]string{ev.A, ev.B}
		applied[k] = applied[k] || ev.CorrectionApplied
		cur, ok := byPair[k]
		if !ok || ev.Severity > cur.Severity || (ev.Severity == cur.Severity && !ev.At.Before(cur.At)) {
			byPair[k] = ev
		}
	}
	for k, ev := range byPair {
		ev.CorrectionApplied = applied[k]
		byPair[k] = ev
	}
	out := make([]overlap.Event, 0, len(byPair))
	for _, ev := range byPair {
		out = append(out, ev)
	}
	slices.SortFunc(out, func(x, y overlap.Event) int {
		return cmp.Or(cmp.Compare(x.A, y.A), cmp.Compare(x.B, y.B))
	})
	return out
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized root element with one
// that scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
