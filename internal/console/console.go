// Package console drives an interactive terminal session: raw mode, sized
// refreshes through the diff engine, and a single ordered event stream
// merging decoded keys with resize and scroll notifications.
package console

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/dshills/termline/internal/event"
	"github.com/dshills/termline/internal/input/eventqueue"
	"github.com/dshills/termline/internal/term"
	"github.com/dshills/termline/internal/trace"
)

// Options configures a console session. Zero values select stdin/stdout,
// $TERM, UTF-8 and the built-in event decoder.
type Options struct {
	Input    *os.File
	Output   *os.File
	Term     string
	Encoding string

	// Source overrides the event decoder, mainly for tests.
	Source event.Source

	Trace *trace.Tracer
}

// Console owns one terminal for the duration of an editing session. All
// methods must be called from a single goroutine; the session model is
// deliberately sequential, with resizes folded into the event stream
// instead of arriving concurrently.
type Console struct {
	in   *os.File
	out  *os.File
	inFd int

	caps   *term.Model
	buf    *term.Buffer
	engine *Engine
	events event.Source
	dec    *term.Decoder
	tr     *trace.Tracer

	height int
	width  int

	saved *unix.Termios
	winch chan os.Signal
}

// New loads the terminal's capability model and assembles the session. It
// fails when the capability database has no usable entry or the terminal
// cannot host the refresh engine. The terminal state is untouched until
// Prepare.
func New(opts Options) (*Console, error) {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	caps, err := term.Load(opts.Term)
	if err != nil {
		return nil, err
	}

	c := &Console{
		in:   opts.Input,
		out:  opts.Output,
		inFd: int(opts.Input.Fd()),
		caps: caps,
		tr:   opts.Trace,
	}

	baud := 0
	if attrs, err := getTermios(c.inFd); err == nil {
		baud = term.BaudRate(uint64(attrs.Ospeed))
	}
	c.buf = term.NewBuffer(opts.Output, caps.PadChar, baud, func() int { return c.height })
	if opts.Encoding != "" {
		if err := c.buf.SetEncoding(opts.Encoding); err != nil {
			return nil, err
		}
	}

	c.dec, err = term.NewDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	c.engine, err = NewEngine(caps, c.buf, opts.Trace)
	if err != nil {
		return nil, err
	}

	c.events = opts.Source
	if c.events == nil {
		c.events, err = eventqueue.New(caps.KeySequences(), opts.Encoding, opts.Trace)
		if err != nil {
			return nil, err
		}
	}

	c.engine.OnScroll(func() {
		c.events.Insert(event.Event{Kind: event.KindScroll})
	})

	c.winch = make(chan os.Signal, 1)
	return c, nil
}

// Prepare puts the terminal into raw mode, saves the prior state, resets
// the refresh engine to the current window size and starts listening for
// window changes. Every successful Prepare must be paired with Restore on
// all exit paths.
func (c *Console) Prepare() error {
	saved, err := getTermios(c.inFd)
	if err != nil {
		return fmt.Errorf("reading terminal attributes: %w", err)
	}

	raw := *saved
	raw.Iflag &^= unix.BRKINT | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := setTermios(c.inFd, &raw); err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	c.saved = saved

	c.height, c.width = c.readWindowSize()
	c.engine.Reset(c.height, c.width)
	c.buf.Clear()
	c.buf.PushCap(c.caps.KeypadXmit)

	signal.Notify(c.winch, unix.SIGWINCH)
	c.tr.Event("session prepared", "height", c.height, "width", c.width)
	return nil
}

// Restore leaves raw mode and puts the saved terminal state back. Safe to
// call when Prepare never ran or already failed.
func (c *Console) Restore() error {
	signal.Stop(c.winch)
	if c.saved == nil {
		return nil
	}
	c.buf.PushCap(c.caps.KeypadLocal)
	if err := c.buf.Flush(); err != nil {
		return err
	}
	saved := c.saved
	c.saved = nil
	if err := setTermios(c.inFd, saved); err != nil {
		return fmt.Errorf("restoring terminal attributes: %w", err)
	}
	c.tr.Event("session restored")
	return nil
}

// GetEvent returns the next event. In blocking mode it waits for input;
// otherwise it drains whatever raw input is immediately available and
// reports ok=false when no event results.
func (c *Console) GetEvent(block bool) (event.Event, bool, error) {
	for c.events.Empty() {
		if c.checkResize() {
			break
		}
		timeout := -1
		if !block {
			timeout = 0
		}
		ready, err := c.waitInput(timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue // a resize most likely; the loop re-checks
			}
			return event.Event{}, false, err
		}
		if !ready {
			break // non-blocking and the input starved
		}
		b, err := c.readByte()
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return event.Event{}, false, err
		}
		c.PushChar(b)
	}
	ev, ok := c.events.Get()
	return ev, ok, nil
}

// Wait blocks until input is readable or an event is already queued.
func (c *Console) Wait() error {
	for {
		if !c.events.Empty() || c.checkResize() {
			return nil
		}
		ready, err := c.waitInput(-1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if ready {
			return nil
		}
	}
}

// PushChar feeds one raw byte into the event decoder, as if it had been
// read from the terminal.
func (c *Console) PushChar(b byte) {
	c.events.Push(b)
}

// GetPending merges every already-decoded key event with any raw input
// sitting unread in the kernel buffer, and returns the combination as one
// key event. Used for fast bulk paste handling.
func (c *Console) GetPending() (event.Event, error) {
	pending := event.Event{Kind: event.KindKey}
	for !c.events.Empty() {
		ev, _ := c.events.Get()
		pending.Data += ev.Data
		pending.Raw = append(pending.Raw, ev.Raw...)
	}

	n, err := unix.IoctlGetInt(c.inFd, unix.TIOCINQ)
	if err != nil || n <= 0 {
		return pending, nil
	}
	raw := make([]byte, n)
	got, err := unix.Read(c.inFd, raw)
	if err != nil {
		return pending, fmt.Errorf("draining pending input: %w", err)
	}
	raw = raw[:got]
	pending.Data += c.dec.String(raw)
	pending.Raw = append(pending.Raw, raw...)
	return pending, nil
}

// ForgetInput discards raw input the kernel has buffered but the session
// has not read.
func (c *Console) ForgetInput() error {
	return flushInput(c.inFd)
}

// ChangeEncoding switches the input and output text encoding mid-session.
func (c *Console) ChangeEncoding(name string) error {
	dec, err := term.NewDecoder(name)
	if err != nil {
		return err
	}
	if err := c.buf.SetEncoding(name); err != nil {
		return err
	}
	c.dec = dec
	if q, ok := c.events.(interface{ SetEncoding(string) error }); ok {
		return q.SetEncoding(name)
	}
	return nil
}

// Size returns the session's current height and width.
func (c *Console) Size() (height, width int) {
	return c.height, c.width
}

// Refresh reconciles the terminal to the given screen lines with the
// cursor at (cx, cy).
func (c *Console) Refresh(screen []string, cx, cy int) error {
	return c.engine.Refresh(screen, cx, cy)
}

// MoveCursor places the cursor without repainting.
func (c *Console) MoveCursor(x, y int) error {
	return c.engine.MoveCursor(x, y)
}

// Clear forces a full repaint on the next refresh.
func (c *Console) Clear() {
	c.engine.Clear()
}

// RepaintPrep marks every displayed row dirty so the next refresh
// rewrites the window in place.
func (c *Console) RepaintPrep() {
	c.engine.RepaintPrep()
}

// Finish ends the editing session visually, moving past the edited text.
func (c *Console) Finish() error {
	return c.engine.Finish()
}

// Beep rings the terminal bell.
func (c *Console) Beep() error {
	return c.engine.Beep()
}

// SetCursorVisible shows or hides the cursor.
func (c *Console) SetCursorVisible(visible bool) {
	c.engine.SetCursorVisible(visible)
	_ = c.buf.Flush()
}

// checkResize drains any pending window-change signal, requeries the
// size and folds a resize event into the stream. Returns true when a
// resize was observed.
func (c *Console) checkResize() bool {
	select {
	case <-c.winch:
	default:
		return false
	}
	c.height, c.width = c.readWindowSize()
	c.engine.SetSize(c.height, c.width)
	c.tr.Event("window resized", "height", c.height, "width", c.width)
	c.events.Insert(event.Event{Kind: event.KindResize})
	return true
}

// readWindowSize consults $LINES/$COLUMNS first so sessions under a
// size-lying wrapper behave, then the kernel, then the classic 25x80.
func (c *Console) readWindowSize() (height, width int) {
	if h, w, ok := sizeFromEnv(); ok {
		return h, w
	}
	ws, err := unix.IoctlGetWinsize(c.inFd, unix.TIOCGWINSZ)
	if err == nil {
		height, width = int(ws.Row), int(ws.Col)
	}
	if height == 0 {
		height, width = 25, 80
	}
	return height, width
}

func sizeFromEnv() (height, width int, ok bool) {
	h, err1 := strconv.Atoi(os.Getenv("LINES"))
	w, err2 := strconv.Atoi(os.Getenv("COLUMNS"))
	if err1 != nil || err2 != nil || h <= 0 || w <= 0 {
		return 0, 0, false
	}
	return h, w, true
}

// waitInput polls the input descriptor. timeout is in milliseconds, -1
// to block. EINTR is returned to the caller: it is the signal that a
// window change needs folding in.
func (c *Console) waitInput(timeout int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(c.inFd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeout)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Console) readByte() (byte, error) {
	var b [1]byte
	n, err := unix.Read(c.inFd, b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("terminal input closed")
	}
	return b[0], nil
}
