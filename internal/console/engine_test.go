package console

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dshills/termline/internal/term"
)

// markCap renders as a readable marker so test assertions can follow the
// emitted capability stream.
func markCap(name string) term.Capability {
	return term.StaticCap(name, []byte("<"+name+">"))
}

func parmCap(name string) term.Capability {
	return term.Capability{Name: name, Render: func(params ...int) []byte {
		s := name
		for _, p := range params {
			s += ":" + strconv.Itoa(p)
		}
		return []byte("<" + s + ">")
	}}
}

func parmModel() *term.Model {
	return &term.Model{
		Bell:            markCap("bel"),
		ClearScreen:     markCap("clear"),
		ClrEOL:          markCap("el"),
		CursorAddress:   parmCap("cup"),
		CursorInvisible: markCap("civis"),
		CursorNormal:    markCap("cnorm"),
		DeleteCharacter: markCap("dch1"),
		InsertCharacter: markCap("ich1"),
		ParmDownCursor:  parmCap("cud"),
		ParmLeftCursor:  parmCap("cub"),
		ParmRightCursor: parmCap("cuf"),
		ParmUpCursor:    parmCap("cuu"),
		ScrollForward:   markCap("ind"),
		ScrollReverse:   markCap("ri"),
	}
}

// bareModel can move but cannot insert, delete or scroll.
func bareModel() *term.Model {
	return &term.Model{
		ClrEOL:          markCap("el"),
		CursorAddress:   parmCap("cup"),
		CursorInvisible: markCap("civis"),
		CursorNormal:    markCap("cnorm"),
		ParmDownCursor:  parmCap("cud"),
		ParmLeftCursor:  parmCap("cub"),
		ParmRightCursor: parmCap("cuf"),
		ParmUpCursor:    parmCap("cuu"),
	}
}

func newTestEngine(t *testing.T, caps *term.Model, height, width int) (*Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	buf := term.NewBuffer(&out, term.Capability{}, 0, nil)
	e, err := NewEngine(caps, buf, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Reset(height, width)
	return e, &out
}

func TestNewEngineRequiresMovement(t *testing.T) {
	var out bytes.Buffer
	buf := term.NewBuffer(&out, term.Capability{}, 0, nil)
	if _, err := NewEngine(&term.Model{}, buf, nil); !errors.Is(err, ErrInvalidTerminal) {
		t.Errorf("NewEngine error = %v, want ErrInvalidTerminal", err)
	}

	m := parmModel()
	m.ParmUpCursor = term.Capability{Name: "cuu"}
	if _, err := NewEngine(m, buf, nil); !errors.Is(err, ErrInvalidTerminal) {
		t.Errorf("NewEngine without vertical movement error = %v, want ErrInvalidTerminal", err)
	}
}

func TestRefreshInitialPaint(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"hello"}, 5, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("output %q does not paint the line", out.String())
	}
}

func TestRefreshIdempotent(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	screen := []string{"alpha", "beta"}
	if err := e.Refresh(screen, 2, 1); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh(screen, 2, 1); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unchanged refresh wrote %q, want nothing", out.String())
	}
}

func TestRefreshSingleCharInsert(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"abcdef"}, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh([]string{"abXcdef"}, 3, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := out.String()
	if got != "<cuf:2><ich1>X" {
		t.Errorf("insert refresh wrote %q, want %q", got, "<cuf:2><ich1>X")
	}
}

func TestRefreshSingleCharOverwrite(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"abcdef"}, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh([]string{"abXdef"}, 3, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := out.String(); got != "<cuf:2>X" {
		t.Errorf("overwrite refresh wrote %q, want %q", got, "<cuf:2>X")
	}
}

func TestRefreshTailRewriteWithoutInsertCap(t *testing.T) {
	e, out := newTestEngine(t, bareModel(), 4, 80)
	if err := e.Refresh([]string{"abcdef"}, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh([]string{"abXcdef"}, 3, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(out.String(), "Xcdef") {
		t.Errorf("tail rewrite output %q, want the rewritten tail", out.String())
	}
}

func TestRefreshWideRuneFallsBackToRewrite(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"abcdef"}, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	// A double-width rune cannot go through the one-cell insert path.
	if err := e.Refresh([]string{"ab世cdef"}, 3, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "<ich1>") {
		t.Errorf("wide rune used single-cell insert: %q", got)
	}
	if !strings.Contains(got, "世cdef") {
		t.Errorf("wide rune refresh wrote %q, want full tail rewrite", got)
	}
}

func TestRefreshFullWidthDeleteInsert(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 6)
	if err := e.Refresh([]string{"abcdef"}, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh([]string{"abXcde"}, 3, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "<dch1>") || !strings.Contains(got, "<ich1>X") {
		t.Errorf("full-width edit wrote %q, want delete+insert strategy", got)
	}
}

func TestRefreshClearsRemovedLines(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"a", "b", "c"}, 1, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Refresh([]string{"a"}, 1, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := strings.Count(out.String(), "<el>"); got != 2 {
		t.Errorf("cleared %d lines, want 2 (output %q)", got, out.String())
	}
}

func TestRefreshTallMode(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 2, 10)
	screen := []string{"l0", "l1", "l2", "l3"}
	if err := e.Refresh(screen, 0, 3); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !e.Tall() {
		t.Error("engine did not enter tall mode")
	}
	if e.Offset() != 2 {
		t.Errorf("Offset = %d, want 2", e.Offset())
	}
	got := out.String()
	if !strings.Contains(got, "l2") || !strings.Contains(got, "l3") {
		t.Errorf("window content missing from %q", got)
	}
	if strings.Contains(got, "l0") {
		t.Errorf("rows above the window were painted: %q", got)
	}
}

// Tall mode is entered once and never left within a session, even after
// content shrinks back below the terminal height.
func TestTallModeIsOneWay(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 2, 10)

	if err := e.Refresh([]string{"a"}, 1, 0); err != nil {
		t.Fatalf("short Refresh: %v", err)
	}
	if e.Tall() {
		t.Fatal("engine entered tall mode with short content")
	}

	if err := e.Refresh([]string{"l0", "l1", "l2", "l3"}, 0, 3); err != nil {
		t.Fatalf("tall Refresh: %v", err)
	}
	if !e.Tall() {
		t.Fatal("engine did not enter tall mode")
	}

	out.Reset()
	if err := e.Refresh([]string{"a"}, 1, 0); err != nil {
		t.Fatalf("short-again Refresh: %v", err)
	}
	if !e.Tall() {
		t.Error("engine left tall mode after content shrank")
	}
	if e.Offset() != 0 {
		t.Errorf("Offset = %d, want 0 after cursor moved to the top", e.Offset())
	}
	// Addressing stays absolute: the repaint goes through cup, not
	// relative motion.
	if !strings.Contains(out.String(), "<cup:") {
		t.Errorf("short-again refresh output %q does not use absolute addressing", out.String())
	}

	// Reset is the only way back.
	e.Reset(2, 10)
	if e.Tall() {
		t.Error("Reset did not clear tall mode")
	}
}

func TestRefreshHardwareScroll(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 2, 10)
	screen := []string{"l0", "l1", "l2", "l3"}
	if err := e.Refresh(screen, 0, 3); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	// Moving the cursor two rows up forces the window back to offset 0.
	if err := e.Refresh(screen, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := out.String()
	if strings.Count(got, "<ri>") != 2 {
		t.Errorf("scroll-reverse count in %q, want 2", got)
	}
	if e.Offset() != 0 {
		t.Errorf("Offset = %d, want 0", e.Offset())
	}
}

func TestMoveCursorOutsideWindowNotifies(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 2, 10)
	if err := e.Refresh([]string{"l0", "l1", "l2", "l3"}, 0, 3); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()

	scrolled := false
	e.OnScroll(func() { scrolled = true })
	if err := e.MoveCursor(0, 0); err != nil {
		t.Fatalf("MoveCursor: %v", err)
	}
	if !scrolled {
		t.Error("scroll hook did not fire")
	}
	if out.Len() != 0 {
		t.Errorf("out-of-window move wrote %q", out.String())
	}
}

func TestRepaintPrepRewritesWindow(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	screen := []string{"keep me"}
	if err := e.Refresh(screen, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	e.RepaintPrep()
	if err := e.Refresh(screen, 0, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(out.String(), "keep me") {
		t.Errorf("repaint did not rewrite content: %q", out.String())
	}
}

func TestFinishEmitsTrailingNewline(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Refresh([]string{"done"}, 4, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out.Reset()
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !strings.HasSuffix(out.String(), "\n\r") {
		t.Errorf("Finish wrote %q, want trailing newline", out.String())
	}
}

func TestBeep(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	if err := e.Beep(); err != nil {
		t.Fatalf("Beep: %v", err)
	}
	if out.String() != "<bel>" {
		t.Errorf("Beep wrote %q", out.String())
	}
}

func TestSetCursorVisibleCollapsesRepeats(t *testing.T) {
	e, out := newTestEngine(t, parmModel(), 4, 80)
	e.SetCursorVisible(false)
	e.SetCursorVisible(false)
	e.SetCursorVisible(true)
	e.SetCursorVisible(true)
	if err := e.buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := out.String(); got != "<civis><cnorm>" {
		t.Errorf("visibility stream = %q, want %q", got, "<civis><cnorm>")
	}
}
