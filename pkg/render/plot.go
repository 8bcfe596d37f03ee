package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Plot formats accepted by [PlotScene].
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// PlotOptions configures [PlotScene].
type PlotOptions struct {
	Title  string
	Format string    // FormatPNG (default) or FormatSVG
	Width  vg.Length // default 8in
	Height vg.Length // default Width scaled to the screen aspect ratio
	// Highlight outlines the listed objects in red, typically the ones
	// taking part in an overlap.
	Highlight map[string]bool
	// Labels draws each object's id next to its centre.
	Labels bool
}

const circleSegments = 48

var categoryColor = map[scene.Category]color.RGBA{
	scene.CategoryUnknown: {R: 150, G: 150, B: 150, A: 255},
	scene.CategoryShape:   {R: 31, G: 119, B: 180, A: 255},
	scene.CategoryText:    {R: 214, G: 160, B: 20, A: 255},
	scene.CategoryCurve:   {R: 44, G: 160, B: 44, A: 255},
	scene.CategoryAxes:    {R: 90, G: 90, B: 90, A: 255},
	scene.CategoryPoint:   {R: 214, G: 39, B: 40, A: 255},
}

// PlotScene draws the screen rectangle and each visible object's circular
// collision footprint, filled by category, and returns the encoded image.
func PlotScene(objs []scene.Object, screen scene.BBox, opts PlotOptions) ([]byte, error) {
	if !screen.Valid() || screen.Area() == 0 {
		return nil, fmt.Errorf("plot: invalid screen bounds %+v", screen)
	}
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Format != FormatPNG && opts.Format != FormatSVG {
		return nil, fmt.Errorf("plot: unsupported format %q", opts.Format)
	}
	if opts.Width <= 0 {
		opts.Width = 8 * vg.Inch
	}
	if opts.Height <= 0 {
		opts.Height = vg.Length(float64(opts.Width) * screen.Height() / screen.Width())
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = screen.MinX, screen.MaxX
	p.Y.Min, p.Y.Max = screen.MinY, screen.MaxY
	p.Add(plotter.NewGrid())

	frame, err := plotter.NewLine(rectXYs(screen))
	if err != nil {
		return nil, fmt.Errorf("plot screen: %w", err)
	}
	frame.Color = color.Black
	frame.Width = vg.Points(1.5)
	frame.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(frame)

	seen := make(map[scene.Category]bool)
	centres := make(plotter.XYs, 0, len(objs))
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		if !o.Visible {
			continue
		}
		poly, err := plotter.NewPolygon(circleXYs(o.Position.X, o.Position.Y, o.Radius()))
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", o.ID, err)
		}
		c := categoryColor[o.Category]
		fill := c
		fill.A = uint8(math.Round(90 * clamp01(o.Opacity)))
		poly.Color = fill
		poly.LineStyle.Color = c
		poly.LineStyle.Width = vg.Points(1)
		if opts.Highlight[o.ID] {
			poly.LineStyle.Color = color.RGBA{R: 220, A: 255}
			poly.LineStyle.Width = vg.Points(2.5)
		}
		p.Add(poly)
		if !seen[o.Category] {
			seen[o.Category] = true
			p.Legend.Add(o.Category.String(), poly)
		}
		centres = append(centres, plotter.XY{X: o.Position.X, Y: o.Position.Y})
		ids = append(ids, o.ID)
	}

	if len(centres) > 0 {
		sc, err := plotter.NewScatter(centres)
		if err != nil {
			return nil, fmt.Errorf("plot centres: %w", err)
		}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)

		if opts.Labels {
			labels, err := plotter.NewLabels(plotter.XYLabels{XYs: centres, Labels: ids})
			if err != nil {
				return nil, fmt.Errorf("plot labels: %w", err)
			}
			p.Add(labels)
		}
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("plot encode: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("plot write: %w", err)
	}
	return buf.Bytes(), nil
}

func rectXYs(b scene.BBox) plotter.XYs {
	return plotter.XYs{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
		{X: b.MinX, Y: b.MinY},
	}
}

func circleXYs(cx, cy, r float64) plotter.XYs {
	pts := make(plotter.XYs, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = plotter.XY{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0), 1) }
