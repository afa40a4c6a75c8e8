package console

import (
	"errors"
	"fmt"
	"strings"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/dshills/termline/internal/term"
	"github.com/dshills/termline/internal/trace"
)

// ErrInvalidTerminal is returned when the terminal lacks a whole family of
// cursor movement capabilities and cannot host the engine at all.
var ErrInvalidTerminal = errors.New("insufficient terminal")

// Engine reconciles the displayed screen with a desired screen using the
// fewest terminal writes the capability set allows. It owns the displayed
// state: the line snapshot, the scroll offset, the believed cursor
// position and the cursor visibility flag.
//
// The engine starts in short mode, where content grows downward from the
// prompt row. The first time desired content exceeds the terminal height
// it switches permanently to tall mode, where an offset window slides over
// the logical screen and absolute addressing replaces relative movement.
type Engine struct {
	caps *term.Model
	buf  *term.Buffer
	tr   *trace.Tracer

	height int
	width  int

	screen []string
	offset int
	posx   int
	posy   int

	goneTall      bool
	cursorVisible bool

	// movement strategies fixed at construction
	moveX func(x int)
	moveY func(y int)

	// single-cell insert/delete, nil when the terminal has neither the
	// plain nor the parameterized form
	insertCh func()
	deleteCh func()

	// onScroll fires when a cursor move lands outside the scroll window.
	onScroll func()
}

// NewEngine builds a refresh engine over the capability model. It fails
// when the terminal supports neither parameterized nor single-cell
// movement in either axis.
func NewEngine(caps *term.Model, buf *term.Buffer, tr *trace.Tracer) (*Engine, error) {
	e := &Engine{
		caps:          caps,
		buf:           buf,
		tr:            tr,
		cursorVisible: true,
		onScroll:      func() {},
	}

	switch {
	case caps.ParmLeftCursor.Supported() && caps.ParmRightCursor.Supported():
		e.moveX = e.moveXParm
	case caps.CursorLeft.Supported() && caps.CursorRight.Supported():
		e.moveX = e.moveXSingle
	default:
		return nil, fmt.Errorf("%w (horizontal)", ErrInvalidTerminal)
	}

	switch {
	case caps.ParmUpCursor.Supported() && caps.ParmDownCursor.Supported():
		e.moveY = e.moveYParm
	case caps.CursorUp.Supported() && caps.CursorDown.Supported():
		e.moveY = e.moveYSingle
	default:
		return nil, fmt.Errorf("%w (vertical)", ErrInvalidTerminal)
	}

	switch {
	case caps.DeleteCharacter.Supported():
		e.deleteCh = func() { e.buf.PushCap(e.caps.DeleteCharacter) }
	case caps.ParmDch.Supported():
		e.deleteCh = func() { e.buf.PushCap(e.caps.ParmDch, 1) }
	}

	switch {
	case caps.InsertCharacter.Supported():
		e.insertCh = func() { e.buf.PushCap(e.caps.InsertCharacter) }
	case caps.ParmIch.Supported():
		e.insertCh = func() { e.buf.PushCap(e.caps.ParmIch, 1) }
	}

	return e, nil
}

// OnScroll registers the notification hook fired when MoveCursor is asked
// to leave the scroll window.
func (e *Engine) OnScroll(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	e.onScroll = fn
}

// Reset clears displayed state for a fresh editing run at the given
// terminal dimensions.
func (e *Engine) Reset(height, width int) {
	e.height = height
	e.width = width
	e.screen = nil
	e.offset = 0
	e.posx, e.posy = 0, 0
	e.goneTall = false
}

// SetSize records new terminal dimensions after a resize. Displayed state
// is kept; the next refresh reconciles against it.
func (e *Engine) SetSize(height, width int) {
	e.height = height
	e.width = width
}

// Size returns the current terminal dimensions.
func (e *Engine) Size() (height, width int) {
	return e.height, e.width
}

// Offset returns the scroll offset: the logical row on physical row 0.
func (e *Engine) Offset() int { return e.offset }

// Tall reports whether the engine has entered tall mode.
func (e *Engine) Tall() bool { return e.goneTall }

// Refresh reconciles the displayed screen to the desired one and leaves
// the physical cursor at the translated (cx, cy). After return the scroll
// window contains cy.
func (e *Engine) Refresh(screen []string, cx, cy int) error {
	screen = append([]string(nil), screen...)
	e.tr.Event("refresh", "lines", len(screen), "cx", cx, "cy", cy)

	// Grow the displayed screen to cover the desired one. In short mode
	// each new row is claimed with a real newline so the terminal
	// scrolls naturally under the prompt.
	if !e.goneTall {
		for len(e.screen) < min(len(screen), e.height) {
			e.hideCursor()
			e.move(0, len(e.screen)-1)
			e.buf.PushText("\n")
			e.posx, e.posy = 0, len(e.screen)
			e.screen = append(e.screen, "")
		}
	} else {
		for len(e.screen) < len(screen) {
			e.screen = append(e.screen, "")
		}
	}
	if len(screen) > e.height {
		e.goneTall = true
	}

	px := e.posx
	oldOffset := e.offset
	offset := e.offset
	height := e.height

	// Keep the cursor inside the window, and use the whole terminal
	// when content shrinks back enough to allow it.
	switch {
	case cy < offset:
		offset = cy
	case cy >= offset+height:
		offset = cy - height + 1
	case offset > 0 && len(screen) < offset+height:
		offset = max(len(screen)-height, 0)
		screen = append(screen, "")
	}

	oldscr := append([]string(nil), sliceLines(e.screen, oldOffset, oldOffset+height)...)
	newscr := sliceLines(screen, offset, offset+height)

	// Hardware scrolling turns O(height) rewrites into O(delta) scroll
	// operations plus the newly exposed rows.
	if oldOffset > offset && e.caps.ScrollReverse.Supported() {
		e.hideCursor()
		e.buf.PushCap(e.caps.CursorAddress, 0, 0)
		e.posx, e.posy = 0, oldOffset
		for i := 0; i < oldOffset-offset; i++ {
			e.buf.PushCap(e.caps.ScrollReverse)
			oldscr = append([]string{""}, oldscr[:len(oldscr)-1]...)
		}
	} else if oldOffset < offset && e.caps.ScrollForward.Supported() {
		e.hideCursor()
		e.buf.PushCap(e.caps.CursorAddress, e.height-1, 0)
		e.posx, e.posy = 0, oldOffset+e.height-1
		for i := 0; i < offset-oldOffset; i++ {
			e.buf.PushCap(e.caps.ScrollForward)
			oldscr = append(oldscr[1:], "")
		}
	}

	e.offset = offset

	for i := 0; i < len(oldscr) && i < len(newscr); i++ {
		if oldscr[i] != newscr[i] {
			e.writeChangedLine(offset+i, oldscr[i], newscr[i], px)
		}
	}

	// Rows the new screen no longer covers are blanked.
	for y := len(newscr); y < len(oldscr); y++ {
		e.hideCursor()
		e.move(0, y)
		e.posx, e.posy = 0, y
		e.buf.PushCap(e.caps.ClrEOL)
	}

	e.showCursor()

	e.screen = screen
	if err := e.MoveCursor(cx, cy); err != nil {
		return err
	}
	return e.buf.Flush()
}

// writeChangedLine rewrites one changed row with the cheapest strategy the
// capability set allows: a one-cell insert, a one-cell overwrite, a
// delete+insert shuffle for full-width lines, or a tail rewrite.
func (e *Engine) writeChangedLine(y int, oldline, newline string, px int) {
	oldr := []rune(oldline)
	newr := []rune(newline)

	// Reuse the old line up to the first difference, but stop at an
	// escape byte: it may start a control sequence, after which column
	// arithmetic is meaningless.
	x := 0
	minlen := min(len(oldr), len(newr))
	for x < minlen && oldr[x] == newr[x] && newr[x] != 0x1b {
		x++
	}

	switch {
	case runesEq(oldr[x:], runeSlice(newr, x+1, len(newr))) &&
		e.insertCh != nil && runewidth.RuneWidth(newr[x]) == 1:
		// One character inserted at x; everything after shifts right.
		if y == e.posy && x > e.posx && runesEq(runeSlice(oldr, px, x), runeSlice(newr, px+1, x+1)) {
			x = px
		}
		e.move(x, y)
		e.insertCh()
		e.buf.PushText(string(newr[x]))
		e.posx, e.posy = x+1, y

	case x < minlen && runesEq(oldr[x+1:], newr[x+1:]):
		// Exactly one cell differs.
		e.move(x, y)
		e.buf.PushText(string(newr[x]))
		e.posx, e.posy = x+1, y

	case e.deleteCh != nil && e.insertCh != nil && len(newr) == e.width &&
		x < len(newr)-2 && runewidth.RuneWidth(newr[x]) == 1 &&
		runesEq(runeSlice(newr, x+1, len(newr)-1), runeSlice(oldr, x, len(oldr)-2)):
		// Full-width line with one cell inserted at x: drop a cell near
		// the right edge, then open a hole at x, instead of rewriting
		// the whole tail.
		e.hideCursor()
		e.move(e.width-2, y)
		e.posx, e.posy = e.width-2, y
		e.deleteCh()
		e.move(x, y)
		e.insertCh()
		e.buf.PushText(string(newr[x]))
		e.posx, e.posy = x+1, y

	default:
		e.hideCursor()
		e.move(x, y)
		if len(oldr) > len(newr) {
			e.buf.PushCap(e.caps.ClrEOL)
		}
		e.buf.PushText(string(newr[x:]))
		e.posx, e.posy = len(newr), y
	}

	if strings.ContainsRune(newline, 0x1b) {
		// The new content carries raw escapes, so the cursor column is
		// unknown after the write. Column 0 is the one place we can
		// reach without trusting it.
		_ = e.MoveCursor(0, y)
	}
}

// MoveCursor places the physical cursor at the logical (x, y). A target
// outside the scroll window cannot be reached without repainting; the
// scroll hook is fired instead so the caller refreshes.
func (e *Engine) MoveCursor(x, y int) error {
	if y < e.offset || y >= e.offset+e.height {
		e.onScroll()
		return nil
	}
	e.move(x, y)
	e.posx, e.posy = x, y
	return e.buf.Flush()
}

// Clear forces a full repaint: clear the terminal, forget displayed
// content and switch to absolute addressing.
func (e *Engine) Clear() {
	e.buf.PushCap(e.caps.ClearScreen)
	e.goneTall = true
	e.posx, e.posy = 0, 0
	e.screen = nil
}

// RepaintPrep poisons the displayed snapshot so the next refresh rewrites
// every row in place.
func (e *Engine) RepaintPrep() {
	blank := strings.Repeat("\x00", e.width)
	if !e.goneTall {
		e.posx = 0
		e.buf.PushText("\r")
		ns := make([]string, len(e.screen))
		for i := range ns {
			ns[i] = blank
		}
		e.screen = ns
	} else {
		e.posx, e.posy = 0, e.offset
		e.move(0, e.offset)
		ns := make([]string, e.height)
		for i := range ns {
			ns[i] = blank
		}
		e.screen = ns
	}
}

// Finish moves past the last nonblank row and emits a trailing newline,
// leaving the shell prompt below the edited text.
func (e *Engine) Finish() error {
	y := len(e.screen) - 1
	for y >= 0 && e.screen[y] == "" {
		y--
	}
	e.move(0, min(y, e.height+e.offset-1))
	e.buf.PushText("\n\r")
	return e.buf.Flush()
}

// Beep queues and flushes the terminal bell.
func (e *Engine) Beep() error {
	e.buf.PushCap(e.caps.Bell)
	return e.buf.Flush()
}

// SetCursorVisible shows or hides the cursor. Repeated requests collapse
// to one capability emission per actual state change.
func (e *Engine) SetCursorVisible(visible bool) {
	if visible {
		e.showCursor()
	} else {
		e.hideCursor()
	}
}

func (e *Engine) hideCursor() {
	if e.cursorVisible {
		e.buf.PushCap(e.caps.CursorInvisible)
		e.cursorVisible = false
	}
}

func (e *Engine) showCursor() {
	if !e.cursorVisible {
		e.buf.PushCap(e.caps.CursorNormal)
		e.cursorVisible = true
	}
}

// move positions the cursor: absolute addressing in tall mode, relative
// movement from the tracked position otherwise.
func (e *Engine) move(x, y int) {
	if e.goneTall {
		e.buf.PushCap(e.caps.CursorAddress, y-e.offset, x)
		return
	}
	e.moveX(x)
	e.moveY(y)
}

func (e *Engine) moveXParm(x int) {
	if dx := x - e.posx; dx > 0 {
		e.buf.PushCap(e.caps.ParmRightCursor, dx)
	} else if dx < 0 {
		e.buf.PushCap(e.caps.ParmLeftCursor, -dx)
	}
}

func (e *Engine) moveXSingle(x int) {
	dx := x - e.posx
	for i := 0; i < dx; i++ {
		e.buf.PushCap(e.caps.CursorRight)
	}
	for i := 0; i < -dx; i++ {
		e.buf.PushCap(e.caps.CursorLeft)
	}
}

func (e *Engine) moveYParm(y int) {
	if dy := y - e.posy; dy > 0 {
		e.buf.PushCap(e.caps.ParmDownCursor, dy)
	} else if dy < 0 {
		e.buf.PushCap(e.caps.ParmUpCursor, -dy)
	}
}

func (e *Engine) moveYSingle(y int) {
	dy := y - e.posy
	for i := 0; i < dy; i++ {
		e.buf.PushCap(e.caps.CursorDown)
	}
	for i := 0; i < -dy; i++ {
		e.buf.PushCap(e.caps.CursorUp)
	}
}

// sliceLines is a clamped slice over screen lines.
func sliceLines(lines []string, lo, hi int) []string {
	if lo > len(lines) {
		lo = len(lines)
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	if hi < lo {
		hi = lo
	}
	return lines[lo:hi]
}

// runeSlice is a clamped slice over a rune line, mirroring the arithmetic
// the diff conditions need at line edges.
func runeSlice(r []rune, lo, hi int) []rune {
	if lo < 0 {
		lo = 0
	}
	if lo > len(r) {
		lo = len(r)
	}
	if hi > len(r) {
		hi = len(r)
	}
	if hi < lo {
		hi = lo
	}
	return r[lo:hi]
}

func runesEq(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
