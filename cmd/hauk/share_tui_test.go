package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"

	"github.com/amonks/hauk/internal/testsupport"
)

// ptyOutput collects everything the child writes to its terminal.
type ptyOutput struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *ptyOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(p)
}

func (o *ptyOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

func (o *ptyOutput) waitFor(t *testing.T, text string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(o.String(), text) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q, got:\n%s", text, o.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestShareTUIStopsOnKeypress(t *testing.T) {
	hauk := testsupport.BuildHauk(t)
	server := testsupport.NewFakeServer(t, "pw")
	home := t.TempDir()
	if err := testsupport.EnsureHomeDirs(home); err != nil {
		t.Fatalf("create home dirs: %v", err)
	}

	cmd := exec.Command(hauk, "share",
		"--server", server.BaseURL(),
		"--password", "pw",
		"--duration", "1",
		"--interval", "1",
		"--lat", "59.91",
		"--lon", "10.75",
	)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "HOME="+home, "TERM=xterm-256color", "NO_COLOR=1")

	terminal, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 100})
	if err != nil {
		t.Fatalf("start under pty: %v", err)
	}
	defer terminal.Close()

	output := &ptyOutput{}
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		buf := make([]byte, 4096)
		for {
			n, err := terminal.Read(buf)
			if n > 0 {
				output.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	output.waitFor(t, "Sharing location")
	output.waitFor(t, "Stop sharing (")

	if _, err := terminal.Write([]byte("q")); err != nil {
		t.Fatalf("send keypress: %v", err)
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()
	select {
	case err := <-waited:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			t.Fatalf("expected clean exit, got %v\n%s", err, output.String())
		}
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatalf("share did not exit after keypress:\n%s", output.String())
	}

	output.waitFor(t, "Stopped sharing")
	if sessions := server.Sessions(); len(sessions) != 1 {
		t.Fatalf("expected one session, got %v", sessions)
	}
}
