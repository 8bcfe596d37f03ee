package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/render"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// plotCommand creates the plot command for drawing scene footprints.
func (c *CLI) plotCommand() *cobra.Command {
	var (
		output   string
		format   string
		width    float64
		labels   bool
		noCache  bool
		fromFile bool
	)

	cmd := &cobra.Command{
		Use:   "plot [scene.yaml|layout.json]",
		Short: "Draw a scene's object footprints",
		Long: `Draw a scene's object footprints.

The scene is laid out (or, with --layout, a layout.json written by 'layout' is
read as is) and every visible object's collision footprint is drawn inside the
screen rectangle, coloured by category. Objects that overlap at the monitor's
footprint scale are outlined in red.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := c.laidOut(cmd, args[0], fromFile, noCache)
			if err != nil {
				return err
			}

			opts := render.PlotOptions{
				Title:     ls.name,
				Format:    format,
				Width:     vg.Length(width) * vg.Inch,
				Highlight: overlapping(ls.objects, ls.cfg.Monitor.FootprintScale),
				Labels:    labels,
			}
			data, err := render.PlotScene(ls.objects, ls.screen, opts)
			if err != nil {
				return err
			}

			outputPath := output
			if outputPath == "" {
				outputPath = derivedPath(strings.TrimSuffix(args[0], ".layout.json"), "."+format)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write output %s: %w", outputPath, err)
			}

			printSuccess("Plotted %d objects", len(ls.objects))
			printFile(outputPath)
			if n := len(opts.Highlight); n > 0 {
				printWarning("%d objects overlap", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", render.FormatPNG, "image format: png, svg")
	cmd.Flags().Float64Var(&width, "width", 8, "image width in inches")
	cmd.Flags().BoolVar(&labels, "labels", true, "label objects with their ids")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&fromFile, "layout", false, "treat the input as a layout.json file")
	_ = cmd.RegisterFlagCompletionFunc("format", plotFormats)

	return cmd
}

// laidOutScene is a scene after the workflow, ready to draw.
type laidOutScene struct {
	name    string
	cfg     config.Config
	screen  scene.BBox
	objects []scene.Object
	layout  pipeline.Layout
}

// laidOut lays out a scene file, or reads a stored layout when fromFile is
// set.
func (c *CLI) laidOut(cmd *cobra.Command, input string, fromFile, noCache bool) (laidOutScene, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return laidOutScene{}, err
	}
	ls := laidOutScene{name: input, cfg: cfg}

	if fromFile {
		l, err := pipeline.ReadLayoutFile(input)
		if err != nil {
			return laidOutScene{}, fmt.Errorf("load layout %s: %w", input, err)
		}
		ls.layout = l
	} else {
		objs, opts, err := loadScene(input, cfg)
		if err != nil {
			return laidOutScene{}, err
		}
		runner, err := c.newRunner(cmd, cfg, noCache)
		if err != nil {
			return laidOutScene{}, fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()

		res, err := c.execute(cmd.Context(), runner, objs, opts)
		if err != nil {
			return laidOutScene{}, err
		}
		_ = res.Stop(context.Background())
		ls.layout = res.Layout
	}

	ls.screen = ls.layout.Screen
	ls.objects = ls.layout.ObjectList()
	return ls, nil
}

// overlapping returns the ids of objects in any overlap at scale.
func overlapping(objs []scene.Object, scale float64) map[string]bool {
	out := make(map[string]bool)
	for _, ov := range overlap.Detect(objs, scale) {
		out[ov.A.ID] = true
		out[ov.B.ID] = true
	}
	return out
}
