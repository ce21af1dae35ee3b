// Package sharetui renders a running share in the terminal.
package sharetui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/amonks/hauk/internal/ui"
	"github.com/amonks/hauk/share"
)

const defaultWidth = 80

// Options configures Run.
type Options struct {
	// Server is shown while connecting.
	Server string
	// Start begins the share. It is called once the program is running.
	Start func() error
	// Stop asks the controller to stop.
	Stop   func() error
	Input  io.Reader
	Output io.Writer
}

// Result summarizes how the share ended.
type Result struct {
	ViewLink       string
	Stopped        bool
	Reason         share.StopReason
	FailureKind    share.ErrorKind
	FailureMessage string
	Pushes         int
	FailedPushes   int
}

// Failed reports whether the share never started.
func (r Result) Failed() bool {
	return r.FailureKind != ""
}

type phase int

const (
	phaseStarting phase = iota
	phaseConnecting
	phaseSharing
	phaseStopping
	phaseDone
)

type model struct {
	server    string
	start     func() error
	stop      func() error
	width     int
	phase     phase
	status    ui.Status
	remaining int
	lastError string
	spinner   spinner.Model
	result    Result
}

// Run shows the share until it stops or fails. Canceling ctx ends the
// program without stopping the share; the caller tears it down.
func Run(ctx context.Context, bridge *Bridge, opts Options) (Result, error) {
	if bridge == nil {
		return Result{}, fmt.Errorf("bridge is required")
	}
	if opts.Start == nil || opts.Stop == nil {
		return Result{}, fmt.Errorf("start and stop are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	program := tea.NewProgram(newModel(opts), programOpts...)
	bridge.attach(program)
	defer bridge.attach(nil)

	final, err := program.Run()
	if m, ok := final.(model); ok {
		if errors.Is(err, tea.ErrProgramKilled) {
			return m.result, nil
		}
		return m.result, err
	}
	return Result{}, err
}

func newModel(opts Options) model {
	spin := spinner.New(spinner.WithSpinner(spinner.Line))
	return model{
		server:    opts.Server,
		start:     opts.Start,
		stop:      opts.Stop,
		width:     defaultWidth,
		phase:     phaseStarting,
		status:    ui.StatusNone,
		remaining: -1,
		spinner:   spin,
	}
}

func (m model) Init() tea.Cmd {
	start := m.start
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		if err := start(); err != nil {
			return startErrMsg{err: err}
		}
		return nil
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case startErrMsg:
		m.phase = phaseDone
		m.result.FailureKind = share.KindUnexpected
		m.result.FailureMessage = msg.err.Error()
		return m, tea.Quit
	case handshakeStartedMsg:
		m.phase = phaseConnecting
		return m, nil
	case handshakeFailedMsg:
		m.phase = phaseDone
		m.status = ui.StatusNone
		m.result.FailureKind = msg.kind
		m.result.FailureMessage = msg.message
		return m, tea.Quit
	case sessionActiveMsg:
		m.phase = phaseSharing
		m.status = ui.StatusWaiting
		m.result.ViewLink = msg.viewLink
		return m, nil
	case firstDataMsg:
		m.status = ui.StatusSharing
		return m, nil
	case remainingMsg:
		m.remaining = msg.seconds
		return m, nil
	case pushResultMsg:
		if msg.err != nil {
			m.result.FailedPushes++
			m.lastError = share.FailureMessage(msg.err)
		} else {
			m.result.Pushes++
			m.lastError = ""
		}
		return m, nil
	case stoppedMsg:
		m.phase = phaseDone
		m.status = ui.StatusNone
		m.result.Stopped = true
		m.result.Reason = msg.reason
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "s", "esc":
	default:
		return m, nil
	}

	switch m.phase {
	case phaseDone:
		return m, tea.Quit
	case phaseStopping:
		return m, nil
	}
	m.phase = phaseStopping
	stop := m.stop
	return m, func() tea.Msg {
		if err := stop(); err != nil {
			return startErrMsg{err: err}
		}
		return nil
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Bold(true).Width(8)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func (m model) View() string {
	lines := []string{titleStyle.Render("Hauk"), ""}

	switch m.phase {
	case phaseStarting, phaseConnecting:
		lines = append(lines, fmt.Sprintf("%s Connecting to %s", m.spinner.View(), m.server))
	case phaseDone:
		lines = append(lines, m.renderDone()...)
		return strings.Join(lines, "\n") + "\n"
	default:
		lines = append(lines, labelStyle.Render("Status")+ui.RenderStatus(m.status))
		if m.result.ViewLink != "" {
			lines = append(lines, labelStyle.Render("Link")+ui.RenderLink(m.truncate(m.result.ViewLink, 8)))
		}
		if m.lastError != "" {
			lines = append(lines, labelStyle.Render("Push")+m.truncate(m.lastError, 8))
		}
		lines = append(lines, "")
		if m.phase == phaseStopping {
			lines = append(lines, m.spinner.View()+" Stopping")
		} else if m.remaining >= 0 {
			lines = append(lines, ui.StopLabel(m.remaining))
		}
	}

	lines = append(lines, "", mutedStyle.Render("s/q stop sharing"))
	return strings.Join(lines, "\n") + "\n"
}

func (m model) renderDone() []string {
	if m.result.Failed() {
		return []string{
			ui.RenderError(m.result.FailureKind.Title()),
			wordwrap.String(m.result.FailureMessage, m.width),
		}
	}
	if m.result.Reason == share.StopExpired {
		return []string{"Share expired"}
	}
	return []string{"Stopped sharing"}
}

// truncate fits value on one line after a label of the given width.
func (m model) truncate(value string, labelWidth int) string {
	available := m.width - labelWidth
	if available < 10 {
		available = 10
	}
	return runewidth.Truncate(value, available, "…")
}
