package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/overlap"
)

const watchRefresh = 250 * time.Millisecond

// watchCommand creates the watch command: monitor with a live view.
func (c *CLI) watchCommand() *cobra.Command {
	var flags monitorFlags

	cmd := &cobra.Command{
		Use:   "watch [scene.yaml]",
		Short: "Monitor a scene with a live terminal view",
		Long: `Monitor a scene with a live terminal view.

Like 'monitor', but the overlap events, correction tasks and monitor counters
are redrawn while the monitor runs. Press q to stop early.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], flags)
		},
	}

	flags.register(cmd, 0)

	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, input string, flags monitorFlags) error {
	ctx := cmd.Context()
	s, err := c.startMonitor(cmd, input, flags)
	if err != nil {
		return err
	}

	m := newWatchModel(input, s.res.Monitor, flags.duration)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(stdout))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		c.Logger.Warn("live view ended", "err", err)
	}

	reports, err := c.finish(ctx, s)
	if err != nil {
		return err
	}
	printMonitorReport(s.res, s.res.Monitor.Events(), reports)
	return nil
}

// =============================================================================
// WatchModel - live monitor view
// =============================================================================

var (
	watchHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	watchDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// watchMaxRows bounds the event and task tables.
const watchMaxRows = 12

type refreshMsg time.Time

// WatchModel is the bubbletea model for the live monitor view.
type WatchModel struct {
	Title    string
	Monitor  *overlap.Monitor
	Deadline time.Time

	stats  overlap.Stats
	events []overlap.Event
	tasks  []overlap.Task
	now    time.Time
}

// newWatchModel creates a model. A zero duration runs until the user quits.
func newWatchModel(title string, m *overlap.Monitor, d time.Duration) WatchModel {
	w := WatchModel{Title: title, Monitor: m, now: time.Now()}
	if d > 0 {
		w.Deadline = w.now.Add(d)
	}
	return w.refresh(w.now)
}

func refreshAfter() tea.Cmd {
	return tea.Tick(watchRefresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m WatchModel) Init() tea.Cmd {
	return refreshAfter()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case refreshMsg:
		m = m.refresh(time.Time(msg))
		if !m.Deadline.IsZero() && !m.now.Before(m.Deadline) {
			return m, tea.Quit
		}
		return m, refreshAfter()
	}
	return m, nil
}

func (m WatchModel) refresh(now time.Time) WatchModel {
	m.now = now
	m.stats = m.Monitor.Stats()
	m.events = m.Monitor.Events()
	if len(m.events) > watchMaxRows {
		m.events = m.events[len(m.events)-watchMaxRows:]
	}
	m.tasks = m.Monitor.Scheduler().Active()
	if len(m.tasks) > watchMaxRows {
		m.tasks = m.tasks[:watchMaxRows]
	}
	return m
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching " + m.Title))
	b.WriteString("\n")
	hint := "q quit"
	if !m.Deadline.IsZero() {
		left := max(m.Deadline.Sub(m.now), 0).Round(100 * time.Millisecond)
		hint = fmt.Sprintf("%s left  %s", left, hint)
	}
	b.WriteString(watchDimStyle.Render(hint))
	b.WriteString("\n\n")

	sched := m.stats.Scheduler
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		watchDimStyle.Render("ticks"), StyleNumber.Render(fmt.Sprint(m.stats.Ticks)),
		watchDimStyle.Render("events"), StyleNumber.Render(fmt.Sprint(m.stats.Events)),
		watchDimStyle.Render("active pairs"), StyleNumber.Render(fmt.Sprint(m.stats.Active)),
		watchDimStyle.Render("applied"), StyleNumber.Render(fmt.Sprintf("%d/%d", sched.Completed, sched.Scheduled)),
	))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString(StyleSuccess.Render("No overlaps"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.eventTable())
		b.WriteString("\n")
	}

	if len(m.tasks) > 0 {
		b.WriteString("\n")
		b.WriteString(watchHeaderStyle.Render("Corrections in flight"))
		b.WriteString("\n")
		for _, t := range m.tasks {
			b.WriteString(fmt.Sprintf("  %s %-10s %s %s\n",
				styleIconSpinner.Render(iconInfo), t.Status, t.Action, watchDimStyle.Render(t.Subject)))
		}
	}

	return b.String()
}

func (m WatchModel) eventTable() string {
	rows := eventRows(m.events)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(eventHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return watchHeaderStyle.Padding(0, 1)
			}
			if col == 2 && row >= 0 && row < len(rows) {
				return severityStyle(rows[row][col]).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Render()
}
