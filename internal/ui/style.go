package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status is the share status shown to the user.
type Status string

const (
	StatusNone    Status = "none"
	StatusWaiting Status = "wait"
	StatusSharing Status = "ok"
)

// Text is the status line for s.
func (s Status) Text() string {
	switch s {
	case StatusWaiting:
		return "Waiting for location data"
	case StatusSharing:
		return "Sharing location"
	default:
		return "Not sharing"
	}
}

var (
	statusNoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusWaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	statusSharingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	linkStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Underline(true)
)

// Style returns the lipgloss style for s.
func (s Status) Style() lipgloss.Style {
	switch s {
	case StatusWaiting:
		return statusWaitingStyle
	case StatusSharing:
		return statusSharingStyle
	default:
		return statusNoneStyle
	}
}

// RenderStatus renders the status text, colored on a terminal.
func RenderStatus(s Status) string {
	return render(s.Style(), s.Text())
}

// RenderLink renders a share link, highlighted on a terminal.
func RenderLink(link string) string {
	return render(linkStyle, link)
}

// RenderError renders an error heading, highlighted on a terminal.
func RenderError(title string) string {
	return render(errorStyle, title)
}

func render(style lipgloss.Style, text string) string {
	if text == "" || !ansiEnabled() {
		return text
	}
	return style.Render(text)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func ansiEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTerminal(os.Stdout)
}
