package console

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/dshills/termline/internal/event"
)

func TestSizeFromEnv(t *testing.T) {
	t.Setenv("LINES", "30")
	t.Setenv("COLUMNS", "100")
	h, w, ok := sizeFromEnv()
	if !ok || h != 30 || w != 100 {
		t.Errorf("sizeFromEnv = %d, %d, %v, want 30, 100, true", h, w, ok)
	}

	t.Setenv("LINES", "not-a-number")
	if _, _, ok := sizeFromEnv(); ok {
		t.Error("sizeFromEnv accepted a malformed LINES")
	}
}

func TestSessionOverPty(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	t.Setenv("LINES", "24")
	t.Setenv("COLUMNS", "80")

	c, err := New(Options{Input: tty, Output: tty, Term: "xterm"})
	if err != nil {
		t.Skipf("terminfo for xterm unavailable: %v", err)
	}
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer func() {
		if err := c.Restore(); err != nil {
			t.Errorf("Restore: %v", err)
		}
	}()

	if h, w := c.Size(); h != 24 || w != 80 {
		t.Errorf("Size = %d, %d, want 24, 80", h, w)
	}

	// Plain character.
	if _, err := ptmx.WriteString("a"); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev, ok, err := c.GetEvent(true)
	if err != nil || !ok {
		t.Fatalf("GetEvent = %v, %v", ok, err)
	}
	if ev.Kind != event.KindKey || ev.Data != "a" {
		t.Errorf("event = %v %q, want key a", ev.Kind, ev.Data)
	}

	// Arrow key decodes through the sequence table.
	if _, err := ptmx.WriteString("\x1b[A"); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev, ok, err = c.GetEvent(true)
	if err != nil || !ok {
		t.Fatalf("GetEvent = %v, %v", ok, err)
	}
	if ev.Data != "up" {
		t.Errorf("event = %q, want up", ev.Data)
	}

	// Non-blocking read starves cleanly.
	if _, ok, err := c.GetEvent(false); err != nil || ok {
		t.Errorf("non-blocking GetEvent = %v, %v, want no event", ok, err)
	}

	// Refresh writes through the output buffer without error.
	if err := c.Refresh([]string{"hello"}, 5, 0); err != nil {
		t.Errorf("Refresh: %v", err)
	}
	if err := c.Finish(); err != nil {
		t.Errorf("Finish: %v", err)
	}
}

func TestGetPendingOverPty(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	t.Setenv("LINES", "24")
	t.Setenv("COLUMNS", "80")

	c, err := New(Options{Input: tty, Output: tty, Term: "xterm"})
	if err != nil {
		t.Skipf("terminfo for xterm unavailable: %v", err)
	}
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer c.Restore()

	if _, err := ptmx.WriteString("world"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	pending, err := c.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if pending.Data != "world" {
		t.Errorf("pending = %q, want %q", pending.Data, "world")
	}
}

func TestResizeEventOverPty(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	t.Setenv("LINES", "24")
	t.Setenv("COLUMNS", "80")

	c, err := New(Options{Input: tty, Output: tty, Term: "xterm"})
	if err != nil {
		t.Skipf("terminfo for xterm unavailable: %v", err)
	}
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer c.Restore()

	// Buffer a key event, then deliver the resize: the key must come out
	// first, untouched, followed by exactly one resize event.
	c.PushChar('x')
	if err := unix.Kill(unix.Getpid(), unix.SIGWINCH); err != nil {
		t.Fatalf("kill: %v", err)
	}

	ev, ok, err := c.GetEvent(false)
	if err != nil || !ok {
		t.Fatalf("GetEvent = %v, %v", ok, err)
	}
	if ev.Kind != event.KindKey || ev.Data != "x" {
		t.Fatalf("first event = %v %q, want the buffered key", ev.Kind, ev.Data)
	}

	resizes := 0
	deadline := time.Now().Add(2 * time.Second)
	for resizes == 0 {
		ev, ok, err := c.GetEvent(false)
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		switch {
		case ok && ev.Kind == event.KindResize:
			resizes++
		case ok:
			t.Fatalf("unexpected event %v %q while waiting for resize", ev.Kind, ev.Data)
		}
		if time.Now().After(deadline) {
			t.Fatal("no resize event after SIGWINCH")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// One signal, one event: nothing else may follow.
	if ev, ok, err := c.GetEvent(false); err != nil {
		t.Fatalf("GetEvent: %v", err)
	} else if ok {
		t.Errorf("extra event after resize: %v %q", ev.Kind, ev.Data)
	}
}

func TestChangeEncodingOverPty(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	t.Setenv("LINES", "24")
	t.Setenv("COLUMNS", "80")

	c, err := New(Options{Input: tty, Output: tty, Term: "xterm"})
	if err != nil {
		t.Skipf("terminfo for xterm unavailable: %v", err)
	}
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer c.Restore()

	if err := c.ChangeEncoding("latin-1"); err != nil {
		t.Fatalf("ChangeEncoding: %v", err)
	}
	if _, err := ptmx.Write([]byte{0xe9}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev, ok, err := c.GetEvent(true)
	if err != nil || !ok {
		t.Fatalf("GetEvent = %v, %v", ok, err)
	}
	if ev.Data != "é" {
		t.Errorf("event = %q, want é", ev.Data)
	}

	if err := c.ChangeEncoding("no-such-charset"); err == nil {
		t.Error("ChangeEncoding accepted an unknown charset")
	}
}
