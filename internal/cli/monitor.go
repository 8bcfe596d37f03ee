package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/store"
)

const defaultMonitorDuration = 3 * time.Second

// monitorFlags are shared by monitor and watch.
type monitorFlags struct {
	duration time.Duration
	noCache  bool
	save     bool
	name     string
	remove   []string
}

func (f *monitorFlags) register(cmd *cobra.Command, duration time.Duration) {
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", duration, "how long to monitor (0 runs until interrupted)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.save, "save", false, "persist the run and its events to the configured store")
	cmd.Flags().StringVar(&f.name, "name", "", "run name when saving (default: input file name)")
	cmd.Flags().StringSliceVar(&f.remove, "remove", nil, "object ids to fade out once monitoring ends")
}

// monitorCommand creates the monitor command.
func (c *CLI) monitorCommand() *cobra.Command {
	var (
		flags  monitorFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "monitor [scene.yaml]",
		Short: "Lay out a scene and watch it for overlaps",
		Long: `Lay out a scene and watch it for overlaps.

The scene is laid out as with 'layout', then the overlap monitor runs in the
background for --duration. Every detected conflict is classified by severity
and, when auto-correction is enabled, repaired by a scheduled correction task.
When the monitor stops, the detected events and correction counts are printed.

With --save the run, its events and any removal reports are written to the
configured store so 'serve' can list them later.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMonitor(cmd, args[0], flags, output)
		},
	}

	flags.register(cmd, defaultMonitorDuration)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the events as JSON to this file")

	return cmd
}

// monitorSession is a laid-out scene with a running monitor.
type monitorSession struct {
	input string
	cfg   config.Config
	flags monitorFlags
	res   *pipeline.Result
	close func()
}

// startMonitor lays out input and starts its monitor.
func (c *CLI) startMonitor(cmd *cobra.Command, input string, flags monitorFlags) (*monitorSession, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	objs, opts, err := loadScene(input, cfg)
	if err != nil {
		return nil, err
	}
	opts.StartMonitor = true

	runner, err := c.newRunner(cmd, cfg, flags.noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	res, err := c.execute(cmd.Context(), runner, objs, opts)
	if err != nil {
		runner.Close()
		return nil, err
	}
	return &monitorSession{
		input: input,
		cfg:   cfg,
		flags: flags,
		res:   res,
		close: func() { runner.Close() },
	}, nil
}

// finish stops the monitor, performs requested removals and saves the run.
func (c *CLI) finish(ctx context.Context, s *monitorSession) ([]fadeout.Report, error) {
	defer s.close()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Monitor.CorrectionTimeout+time.Second)
	defer cancel()
	if err := s.res.Stop(stopCtx); err != nil {
		c.Logger.Warn("monitor did not stop cleanly", "err", err)
	}

	var reports []fadeout.Report
	if len(s.flags.remove) > 0 {
		rep := s.res.Remover.Remove(stopCtx, s.flags.remove, true)
		reports = append(reports, rep)
	}

	if s.flags.save {
		if err := c.saveRun(stopCtx, s, reports); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// saveRun persists the run, its events and its removal reports.
func (c *CLI) saveRun(ctx context.Context, s *monitorSession, reports []fadeout.Report) error {
	st, err := store.Open(ctx, s.cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	name := s.flags.name
	if name == "" {
		name = derivedPath(filepath.Base(s.input), "")
	}
	run := store.Run{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Layout:    s.res.Layout,
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	for _, ev := range s.res.Monitor.Events() {
		if err := st.SaveEvent(ctx, run.ID, ev); err != nil {
			return fmt.Errorf("save event: %w", err)
		}
	}
	for _, r := range reports {
		if err := st.AppendRemoval(ctx, run.ID, r); err != nil {
			return fmt.Errorf("save removal: %w", err)
		}
	}
	printSuccess("Saved run %s", run.ID)
	printDetail("Backend: %s", s.cfg.Store.Backend)
	return nil
}

// runMonitor monitors for the configured duration and reports.
func (c *CLI) runMonitor(cmd *cobra.Command, input string, flags monitorFlags, output string) error {
	ctx := cmd.Context()
	s, err := c.startMonitor(cmd, input, flags)
	if err != nil {
		return err
	}

	printInfo("Monitoring %d objects", len(s.res.Layout.Objects))
	wait(ctx, flags.duration)

	reports, err := c.finish(ctx, s)
	if err != nil {
		return err
	}

	events := s.res.Monitor.Events()
	if output != "" {
		if err := writeJSONFile(output, events); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
	}

	printMonitorReport(s.res, events, reports)
	if output != "" {
		printFile(output)
	}
	return nil
}

// wait blocks for d, or until ctx is done when d is zero.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func printMonitorReport(res *pipeline.Result, events []overlap.Event, reports []fadeout.Report) {
	st := res.Monitor.Stats()
	if len(events) == 0 {
		printSuccess("No overlaps detected in %d ticks", st.Ticks)
	} else {
		printWarning("%d overlap events in %d ticks", len(events), st.Ticks)
		printTable(eventHeaders, eventRows(events))
	}

	corr := res.Layout.Summary.Corrections
	printKeyValue("Corrections", fmt.Sprintf("%d scheduled, %d applied, %d failed", corr.Scheduled, corr.Applied, corr.Failed))
	for _, r := range reports {
		printKeyValue("Removed", strings.Join(r.Succeeded, ", "))
		for _, f := range r.Failed {
			printWarning("%s: %s", f.ID, f.Reason)
		}
	}
}

var eventHeaders = []string{"a", "b", "severity", "ratio", "action", "corrected"}

func eventRows(events []overlap.Event) [][]string {
	rows := make([][]string, len(events))
	for i, ev := range events {
		corrected := "—"
		switch {
		case ev.CorrectionApplied:
			corrected = iconSuccess
		case ev.AutoCorrected:
			corrected = "pending"
		}
		rows[i] = []string{
			ev.A,
			ev.B,
			ev.Severity.String(),
			fmt.Sprintf("%.0f%%", ev.Ratio*100),
			string(ev.Action),
			corrected,
		}
	}
	return rows
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
