package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// layoutCommand creates the layout command for placing a scene's objects.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [scene.yaml]",
		Short: "Place a scene's objects and write the resulting layout",
		Long: `Place a scene's objects and write the resulting layout.

The layout command reads a scene file (JSON, YAML or TOML) listing the objects
to show, positions each one in arrival order, resolves conflicts between their
footprints, picks a camera action and writes a layout.json file holding final
positions and a summary of every decision.

Results are cached by scene and configuration, so laying out an unchanged
scene twice is instant. Use --refresh to recompute.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd, args[0], output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached layouts")

	return cmd
}

// runLayout loads the scene, runs the workflow and writes the layout.
func (c *CLI) runLayout(cmd *cobra.Command, input, output string, noCache, refresh bool) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	objs, opts, err := loadScene(input, cfg)
	if err != nil {
		return err
	}
	opts.Refresh = refresh

	runner, err := c.newRunner(cmd, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := c.execute(ctx, runner, objs, opts)
	if err != nil {
		return err
	}

	outputPath := output
	if outputPath == "" {
		outputPath = derivedPath(input, ".layout.json")
	}
	if err := writeLayoutFile(outputPath, res.Layout); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	sum := res.Layout.Summary
	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(res.Layout.Objects), len(sum.Warnings), sum.CacheHit)
	for _, w := range sum.Warnings {
		printWarning("%s", w)
	}
	printNewline()
	printNextStep("Plot", appName+" plot "+input)

	return nil
}

// execute runs the workflow behind a spinner.
func (c *CLI) execute(ctx context.Context, runner *pipeline.Runner, objs []scene.Object, opts pipeline.Options) (*pipeline.Result, error) {
	opts.Logger = c.Logger
	prog := newProgress(c.Logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Laying out %d objects...", len(objs)))
	spinner.Start()

	res, err := runner.Execute(ctx, objs, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return nil, fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		_ = res.Stop(context.Background())
		return nil, ctx.Err()
	}
	prog.done(fmt.Sprintf("Laid out %d objects", len(res.Layout.Objects)), "conflicts", res.Layout.Summary.Conflicts)
	return res, nil
}

// loadScene reads a scene file and derives workflow options from cfg. A
// screen declared in the file wins over the configured one.
func loadScene(path string, cfg config.Config) ([]scene.Object, pipeline.Options, error) {
	f, err := scene.ReadDescriptors(path)
	if err != nil {
		return nil, pipeline.Options{}, fmt.Errorf("load scene %s: %w", path, err)
	}
	opts := cfg.PipelineOptions()
	if f.Screen != nil {
		opts.Screen = *f.Screen
	}
	return f.ObjectList(), opts, nil
}

// derivedPath swaps the extension of input for suffix.
func derivedPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

func writeLayoutFile(path string, l pipeline.Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pipeline.WriteLayout(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
