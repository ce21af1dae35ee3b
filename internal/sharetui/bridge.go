package sharetui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amonks/hauk/share"
)

type handshakeStartedMsg struct{}

type handshakeFailedMsg struct {
	kind    share.ErrorKind
	message string
}

type sessionActiveMsg struct {
	viewLink string
}

type firstDataMsg struct{}

type remainingMsg struct {
	seconds int
}

type stoppedMsg struct {
	reason share.StopReason
}

type pushResultMsg struct {
	err error
}

type startErrMsg struct {
	err error
}

// Bridge forwards controller events into a running program. Events that
// arrive while no program is attached are dropped.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewBridge returns a bridge with no program attached.
func NewBridge() *Bridge {
	return &Bridge{}
}

func (b *Bridge) attach(program *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = program
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	program := b.program
	b.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

func (b *Bridge) OnHandshakeStarted() { b.send(handshakeStartedMsg{}) }

func (b *Bridge) OnHandshakeFailed(kind share.ErrorKind, message string) {
	b.send(handshakeFailedMsg{kind: kind, message: message})
}

func (b *Bridge) OnSessionActive(viewLink string) { b.send(sessionActiveMsg{viewLink: viewLink}) }

func (b *Bridge) OnFirstDataReceived() { b.send(firstDataMsg{}) }

func (b *Bridge) OnRemainingTimeChanged(seconds int) { b.send(remainingMsg{seconds: seconds}) }

func (b *Bridge) OnStopped(reason share.StopReason) { b.send(stoppedMsg{reason: reason}) }

func (b *Bridge) OnPushResult(err error) { b.send(pushResultMsg{err: err}) }
