// internal/tui/progress.go
// Package tui renders the live progress display shown while an evaluation
// runs. The orchestrator reports each finished case through its progress
// hook and the display animates a bar, a spinner, and an elapsed timer
// until the run completes. Verbose runs print plain log lines instead and
// never start the display.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anuppradhan78/phase2-medical-diagnosis-evaluator/internal/evaluation"
)

// RunFunc executes an evaluation and reports every finished case through
// tick. The display drives the terminal while the function runs and hands
// back its result once it returns.
type RunFunc func(ctx context.Context, tick func(completed, total int, caseID string)) (*evaluation.Run, error)

const (
	progressPadding = 2
	maxBarWidth     = 60
)

// caseDoneMsg is a message sent after a case finishes, whether it
// succeeded or failed.
type caseDoneMsg struct {
	completed int
	total     int
	caseID    string
}

// runDoneMsg is a message sent when the evaluation itself returns.
type runDoneMsg struct {
	run *evaluation.Run
	err error
}

// tickMsg is a message sent at regular intervals, used for the elapsed-time display.
type tickMsg time.Time

// model is the Bubble Tea model for the evaluation progress display.
type model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	runFn   RunFunc
	program *tea.Program

	bar     progress.Model
	spinner spinner.Model
	start   time.Time
	width   int

	completed  int
	total      int
	caseID     string
	cancelling bool
	done       bool

	result *evaluation.Run
	err    error
}

// initialModel creates and initializes a progress model for the given run function.
func initialModel(ctx context.Context, cancel context.CancelFunc, runFn RunFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		ctx:     ctx,
		cancel:  cancel,
		runFn:   runFn,
		bar:     progress.New(progress.WithDefaultGradient()),
		spinner: s,
		start:   time.Now(),
	}
}

// startRunCmd creates a Bubble Tea command that launches the evaluation in
// the background and forwards its progress to the program as messages.
func startRunCmd(ctx context.Context, p *tea.Program, runFn RunFunc) tea.Cmd {
	return func() tea.Msg {
		go func() {
			run, err := runFn(ctx, func(completed, total int, caseID string) {
				p.Send(caseDoneMsg{completed: completed, total: total, caseID: caseID})
			})
			p.Send(runDoneMsg{run: run, err: err})
		}()
		return nil
	}
}

// tickCmd creates a Bubble Tea command that sends a tickMsg at a regular interval.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner, the elapsed-time ticker, and the evaluation itself.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd(), startRunCmd(m.ctx, m.program, m.runFn))
}

// Update is the central update function for the progress display.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// The run goroutine owns the result, so quitting waits for it
			// to observe the cancelled context and send runDoneMsg.
			if !m.cancelling {
				m.cancelling = true
				m.cancel()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - progressPadding*2 - 4
		if m.bar.Width > maxBarWidth {
			m.bar.Width = maxBarWidth
		}
		return m, nil

	case caseDoneMsg:
		m.completed = msg.completed
		m.total = msg.total
		m.caseID = msg.caseID
		if msg.total <= 0 {
			return m, nil
		}
		return m, m.bar.SetPercent(float64(msg.completed) / float64(msg.total))

	case runDoneMsg:
		m.done = true
		m.result = msg.run
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	return m, nil
}

// View renders the progress bar with the current counts, the last finished
// case, and the elapsed time.
func (m *model) View() string {
	if m.done {
		return ""
	}

	timer := fmt.Sprintf("%.1f", time.Since(m.start).Seconds())

	if m.cancelling {
		return fmt.Sprintf("\n  %s Cancelling evaluation... %ss\n", m.spinner.View(), timer)
	}

	if m.total == 0 {
		return fmt.Sprintf("\n  %s Preparing evaluation... %ss\n", m.spinner.View(), timer)
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	status := fmt.Sprintf("%d/%d cases", m.completed, m.total)
	if m.caseID != "" {
		status += fmt.Sprintf("  last: %s", m.caseID)
	}
	status += fmt.Sprintf("  %ss", timer)

	var builder strings.Builder
	builder.WriteString("\n  " + headerStyle.Render("Evaluating cases") + "\n\n")
	builder.WriteString("  " + m.bar.View() + "\n\n")
	builder.WriteString("  " + m.spinner.View() + statusStyle.Render(status) + "\n")
	return builder.String()
}

// Evaluate runs fn under a live progress display and returns its result.
// Pressing ctrl+c cancels the run's context; the display stays up until
// the orchestrator unwinds so no work is abandoned mid-case.
func Evaluate(ctx context.Context, fn RunFunc) (*evaluation.Run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(ctx, cancel, fn)
	p := tea.NewProgram(m)
	m.program = p

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	final := finalModel.(*model)
	return final.result, final.err
}
