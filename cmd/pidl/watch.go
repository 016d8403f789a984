package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pidl-project/pidl/pipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type taskState string

const (
	taskPending taskState = "pending"
	taskRunning taskState = "running"
	taskDone    taskState = "done"
	taskFailed  taskState = "failed"
)

type taskEventMsg struct {
	name  string
	state taskState
}

type pipelineDoneMsg struct {
	err error
}

// dashboardModel renders one row per task, colored by state, fed purely by
// subscribing to the pipeline's public event stream — it has no access to
// the engine beyond what any other subscriber could observe.
type dashboardModel struct {
	name   string
	order  []string
	states map[string]taskState
	width  int
	done   bool
	runErr error
}

func newDashboardModel(name string, taskNames []string, width int) dashboardModel {
	states := make(map[string]taskState, len(taskNames))
	order := append([]string(nil), taskNames...)
	sort.Strings(order)
	for _, n := range order {
		states[n] = taskPending
	}
	return dashboardModel{name: name, order: order, states: states, width: width}
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskEventMsg:
		m.states[msg.name] = msg.state
		return m, nil
	case pipelineDoneMsg:
		m.done = true
		m.runErr = msg.err
		if msg.err != nil {
			// A RAISE-policy failure aborts its task without a task_end
			// event, so the failing task otherwise stays "running" forever.
			for name, state := range m.states {
				if state == taskRunning {
					m.states[name] = taskFailed
				}
			}
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder
	title := "Pidl • " + m.name
	if m.width > 0 && len(title) > m.width {
		title = title[:m.width]
	}
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(title))
	for _, name := range m.order {
		b.WriteString(renderTaskLine(name, m.states[name]))
		b.WriteString("\n")
	}
	if m.done {
		if m.runErr != nil {
			fmt.Fprintf(&b, "\n%s\n", failureStyle.Render("pipeline failed: "+m.runErr.Error()))
		} else {
			fmt.Fprintf(&b, "\n%s\n", successStyle.Render("pipeline complete"))
		}
	}
	return b.String()
}

func renderTaskLine(name string, state taskState) string {
	switch state {
	case taskRunning:
		return runningStyle.Render("⏳ " + name)
	case taskDone:
		return successStyle.Render("✓ " + name)
	case taskFailed:
		return failureStyle.Render("✗ " + name)
	default:
		return pendingStyle.Render("… " + name)
	}
}

func newWatchCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file.yaml>",
		Short: "Run a pipeline while rendering a live terminal dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], root.verbose)
			if err != nil {
				return err
			}

			plan, err := p.Explain()
			if err != nil {
				return err
			}
			var names []string
			for _, wave := range plan {
				names = append(names, wave...)
			}

			fd := int(os.Stdout.Fd())
			if !term.IsTerminal(fd) {
				return watchPlain(cmd, p)
			}

			width, _, err := term.GetSize(fd)
			if err != nil || width <= 0 {
				width = 80
			}

			model := newDashboardModel(p.Name(), names, width)
			program := tea.NewProgram(model)

			p.On("task_start", func(event string, eventArgs ...interface{}) {
				program.Send(taskEventMsg{name: argString(eventArgs), state: taskRunning})
			})
			p.On("task_end", func(event string, eventArgs ...interface{}) {
				program.Send(taskEventMsg{name: argString(eventArgs), state: taskDone})
			})

			runErrCh := make(chan error, 1)
			go func() {
				runErrCh <- runWithFailureTracking(cmd.Context(), p)
			}()

			go func() {
				err := <-runErrCh
				program.Send(pipelineDoneMsg{err: err})
			}()

			_, err = program.Run()
			return err
		},
	}

	return cmd
}

// watchPlain runs the pipeline without the interactive dashboard, printing
// one line per task_start/task_end event instead. Used whenever stdout
// isn't a terminal (piped output, CI logs) — bubbletea's full-screen
// renderer assumes a TTY it doesn't have there.
func watchPlain(cmd *cobra.Command, p *pipeline.Pipeline) error {
	out := cmd.OutOrStdout()
	p.On("task_start", func(event string, eventArgs ...interface{}) {
		fmt.Fprintf(out, "task %s: running\n", argString(eventArgs))
	})
	p.On("task_end", func(event string, eventArgs ...interface{}) {
		fmt.Fprintf(out, "task %s: done\n", argString(eventArgs))
	})
	return runWithFailureTracking(cmd.Context(), p)
}

// runWithFailureTracking runs p and reports the error, giving callers a
// single channel-friendly signature around Pipeline.Run.
func runWithFailureTracking(ctx context.Context, p *pipeline.Pipeline) error {
	return p.Run(ctx)
}

func argString(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	s, _ := args[0].(string)
	return s
}
