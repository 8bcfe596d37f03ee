package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/registry"
	"github.com/matzehuels/sceneguard/pkg/render"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// conflictsCommand creates the conflicts command for drawing overlap graphs.
func (c *CLI) conflictsCommand() *cobra.Command {
	var (
		output   string
		dotOnly  bool
		noCache  bool
		fromFile bool
		opts     render.DOTOptions
	)

	cmd := &cobra.Command{
		Use:   "conflicts [scene.yaml|layout.json]",
		Short: "Draw a scene's overlaps as a graph",
		Long: `Draw a scene's overlaps as a graph.

One monitor pass runs over the laid-out scene without correcting anything.
Each object is a node and each overlapping pair an edge coloured by severity.
The graph is rendered to SVG with Graphviz, or written as DOT with --dot.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ls, err := c.laidOut(cmd, args[0], fromFile, noCache)
			if err != nil {
				return err
			}

			mcfg := ls.cfg.Monitor
			mcfg.AutoCorrect = false
			reg, err := registryOf(ls.objects)
			if err != nil {
				return err
			}
			events, err := overlap.NewMonitor(reg, nil, mcfg, c.Logger).Tick(ctx)
			if err != nil {
				return err
			}

			dot := render.ConflictDOT(ls.objects, events, opts)
			data := []byte(dot)
			ext := ".conflicts.svg"
			if dotOnly {
				ext = ".conflicts.dot"
			} else if data, err = render.RenderSVG(ctx, dot); err != nil {
				return err
			}

			outputPath := output
			if outputPath == "" {
				outputPath = derivedPath(strings.TrimSuffix(args[0], ".layout.json"), ext)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write output %s: %w", outputPath, err)
			}

			if len(events) == 0 {
				printSuccess("No conflicts")
			} else {
				printWarning("%d conflicts", len(events))
			}
			printFile(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.conflicts.svg)")
	cmd.Flags().BoolVar(&dotOnly, "dot", false, "write Graphviz DOT instead of SVG")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include categories, positions and ratios")
	cmd.Flags().BoolVar(&opts.IncludeIsolated, "all", false, "include objects without conflicts")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&fromFile, "layout", false, "treat the input as a layout.json file")

	return cmd
}

// registryOf loads laid-out objects into a fresh registry in creation order.
func registryOf(objs []scene.Object) (*registry.Registry, error) {
	reg := registry.New()
	for _, o := range objs {
		if _, err := reg.Register(o, o.ZOrder); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
