// Package main is an interactive line editor demonstrating the session,
// keymap and refresh machinery end to end.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unicode"

	runewidth "github.com/mattn/go-runewidth"
	xterm "golang.org/x/term"

	"github.com/dshills/termline/internal/console"
	"github.com/dshills/termline/internal/event"
	"github.com/dshills/termline/internal/input/key"
	"github.com/dshills/termline/internal/input/keymap"
	"github.com/dshills/termline/internal/trace"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

var errQuit = errors.New("quit")

type options struct {
	Term       string
	Encoding   string
	KeymapPath string
	Prompt     string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	if !xterm.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: standard input is not a terminal")
		return 1
	}

	tr := trace.FromEnv()
	defer tr.Close()

	bindings := keymap.Default()
	if opts.KeymapPath != "" {
		var err error
		bindings, err = keymap.LoadFile(opts.KeymapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading keymap: %v\n", err)
			return 1
		}
	}
	first, err := keymap.NewTranslator(bindings, tr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: compiling keymap: %v\n", err)
		return 1
	}
	var translator atomic.Pointer[keymap.Translator]
	translator.Store(first)

	c, err := console.New(console.Options{
		Term:     opts.Term,
		Encoding: opts.Encoding,
		Trace:    tr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening terminal: %v\n", err)
		return 1
	}

	// Hot-reload the keymap while the session runs.
	if opts.KeymapPath != "" {
		w, err := keymap.Watch(opts.KeymapPath,
			func(b []keymap.Binding) {
				if next, err := keymap.NewTranslator(b, tr); err == nil {
					translator.Store(next)
				}
			},
			func(err error) { tr.Event("keymap reload failed", "err", err) },
			tr,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watching keymap: %v\n", err)
			return 1
		}
		defer w.Close()
	}

	ed := &editor{prompt: opts.Prompt}

	// One prepare/restore pair per line keeps the terminal usable between
	// edits and resets the engine for each fresh prompt.
	for {
		if err := c.Prepare(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: preparing terminal: %v\n", err)
			return 1
		}
		line, err := readLine(c, &translator, ed)
		if rerr := c.Restore(); rerr != nil {
			fmt.Fprintf(os.Stderr, "Error: restoring terminal: %v\n", rerr)
			return 1
		}
		if errors.Is(err, errQuit) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("=> %s\n", line)
		ed.reset()
	}
}

// readLine runs one edit cycle: refresh, wait for events, apply commands,
// until the line is accepted or the session ends.
func readLine(c *console.Console, tp *atomic.Pointer[keymap.Translator], ed *editor) (string, error) {
	var surf surface = c
	for {
		translator := tp.Load()
		_, width := c.Size()
		screen, cx, cy := ed.render(width)
		if err := c.Refresh(screen, cx, cy); err != nil {
			return "", err
		}

		ev, ok, err := c.GetEvent(true)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		switch ev.Kind {
		case event.KindResize, event.KindScroll:
			c.RepaintPrep()
			continue
		case event.KindKey:
			translator.Push(ev)
		}

		for {
			res, ok := translator.Get()
			if !ok {
				break
			}
			done, err := ed.apply(surf, res)
			if err != nil {
				return "", err
			}
			if done {
				if err := c.Finish(); err != nil {
					return "", err
				}
				return string(ed.buf), nil
			}
		}
	}
}

// editor is the demo's line model: a rune buffer, a cursor and a kill
// ring of one.
type editor struct {
	prompt string
	buf    []rune
	pos    int
	kill   []rune
}

func (ed *editor) reset() {
	ed.buf = ed.buf[:0]
	ed.pos = 0
}

// render wraps the prompt and buffer into screen lines and places the
// cursor by display cells, so wide characters land where the terminal
// puts them.
func (ed *editor) render(width int) (screen []string, cx, cy int) {
	if width <= 0 {
		width = 80
	}
	text := ed.prompt + string(ed.buf)
	screen = wrapCells(text, width)
	cells := runewidth.StringWidth(ed.prompt + string(ed.buf[:ed.pos]))
	return screen, cells % width, cells / width
}

func wrapCells(s string, width int) []string {
	var lines []string
	var line strings.Builder
	cells := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if cells+w > width {
			lines = append(lines, line.String())
			line.Reset()
			cells = 0
		}
		line.WriteRune(r)
		cells += w
	}
	return append(lines, line.String())
}

// surface is the slice of the session the editor commands touch, kept
// narrow so tests can fake it.
type surface interface {
	Beep() error
	Clear()
	RepaintPrep()
}

// apply executes one translated command. done reports line acceptance.
func (ed *editor) apply(c surface, res keymap.Result) (done bool, err error) {
	switch res.Command {
	case keymap.CmdSelfInsert:
		for _, code := range res.Keys {
			ed.insert([]rune(string(code)))
		}

	case keymap.CmdAccept:
		return true, nil

	case keymap.CmdInterrupt:
		return false, errQuit

	case keymap.CmdDelete:
		// Ctrl-D on an empty line ends the session.
		if len(ed.buf) == 0 && len(res.Keys) == 1 && res.Keys[0] == key.Ctrl('d') {
			return false, errQuit
		}
		if ed.pos < len(ed.buf) {
			ed.buf = append(ed.buf[:ed.pos], ed.buf[ed.pos+1:]...)
		} else {
			return false, c.Beep()
		}

	case keymap.CmdBackspace:
		if ed.pos > 0 {
			ed.buf = append(ed.buf[:ed.pos-1], ed.buf[ed.pos:]...)
			ed.pos--
		} else {
			return false, c.Beep()
		}

	case keymap.CmdLeft:
		if ed.pos > 0 {
			ed.pos--
		} else {
			return false, c.Beep()
		}

	case keymap.CmdRight:
		if ed.pos < len(ed.buf) {
			ed.pos++
		} else {
			return false, c.Beep()
		}

	case keymap.CmdBeginningOfLine:
		ed.pos = 0

	case keymap.CmdEndOfLine:
		ed.pos = len(ed.buf)

	case keymap.CmdForwardWord:
		ed.pos = ed.forwardWord()

	case keymap.CmdBackwardWord:
		ed.pos = ed.backwardWord()

	case keymap.CmdKillLine:
		ed.kill = append(ed.kill[:0], ed.buf[ed.pos:]...)
		ed.buf = ed.buf[:ed.pos]

	case keymap.CmdUnixLineDiscard:
		ed.kill = append(ed.kill[:0], ed.buf[:ed.pos]...)
		ed.buf = append(ed.buf[:0], ed.buf[ed.pos:]...)
		ed.pos = 0

	case keymap.CmdKillWord:
		end := ed.forwardWord()
		ed.kill = append(ed.kill[:0], ed.buf[ed.pos:end]...)
		ed.buf = append(ed.buf[:ed.pos], ed.buf[end:]...)

	case keymap.CmdUnixWordRubout, keymap.CmdBackwardKillWord:
		start := ed.backwardWord()
		ed.kill = append(ed.kill[:0], ed.buf[start:ed.pos]...)
		ed.buf = append(ed.buf[:start], ed.buf[ed.pos:]...)
		ed.pos = start

	case keymap.CmdYank:
		ed.insert(ed.kill)

	case keymap.CmdTranspose:
		if ed.pos > 0 && ed.pos < len(ed.buf) {
			ed.buf[ed.pos-1], ed.buf[ed.pos] = ed.buf[ed.pos], ed.buf[ed.pos-1]
			ed.pos++
		} else {
			return false, c.Beep()
		}

	case keymap.CmdUpcaseRegion:
		for i := ed.pos; i < len(ed.buf); i++ {
			ed.buf[i] = unicode.ToUpper(ed.buf[i])
		}

	case keymap.CmdClearScreen:
		c.Clear()
		c.RepaintPrep()

	case keymap.CmdInvalid:
		return false, c.Beep()

	default:
		// Unhandled commands (history movement and friends) just beep in
		// a single-line demo.
		return false, c.Beep()
	}
	return false, nil
}

func (ed *editor) insert(rs []rune) {
	ed.buf = append(ed.buf[:ed.pos], append(append([]rune(nil), rs...), ed.buf[ed.pos:]...)...)
	ed.pos += len(rs)
}

func (ed *editor) forwardWord() int {
	i := ed.pos
	for i < len(ed.buf) && !isWordRune(ed.buf[i]) {
		i++
	}
	for i < len(ed.buf) && isWordRune(ed.buf[i]) {
		i++
	}
	return i
}

func (ed *editor) backwardWord() int {
	i := ed.pos
	for i > 0 && !isWordRune(ed.buf[i-1]) {
		i--
	}
	for i > 0 && isWordRune(ed.buf[i-1]) {
		i--
	}
	return i
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.Term, "term", "", "Terminal type (defaults to $TERM)")
	flag.StringVar(&opts.Encoding, "encoding", "", "Terminal character encoding (defaults to UTF-8)")
	flag.StringVar(&opts.KeymapPath, "keymap", "", "Path to a JSON keymap file")
	flag.StringVar(&opts.Prompt, "prompt", "> ", "Prompt string")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "termline - terminal line editor demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: termline [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSet %s to a file path to record a trace.\n", trace.EnvVar)
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("termline %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	return opts
}
