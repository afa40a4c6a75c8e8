package keymap

import (
	"github.com/dshills/termline/internal/event"
	"github.com/dshills/termline/internal/input/key"
	"github.com/dshills/termline/internal/trace"
)

// Result is one translated command together with the key codes that
// produced it.
type Result struct {
	Command Command
	Keys    []key.Code
}

// Translator converts key events into commands by greedy longest-prefix
// matching against the compiled trie. One translator serves one session;
// it is not safe for concurrent use and does not need to be.
type Translator struct {
	root node

	// literals memoizes unbound printable characters so repeat presses
	// resolve in one map hit. It fronts the trie; the trie itself is
	// never mutated after compile.
	literals map[key.Code]Command

	// pending match state: current trie position and the codes consumed
	// so far on the way there.
	current node
	stack   []key.Code

	results []Result

	tr *trace.Tracer
}

// NewTranslator compiles the binding table and returns a ready translator.
// Construction fails if the table is not prefix-free or a keyspec does not
// parse.
func NewTranslator(bindings []Binding, tr *trace.Tracer) (*Translator, error) {
	root, err := compile(bindings)
	if err != nil {
		return nil, err
	}
	return &Translator{
		root:     root,
		literals: make(map[key.Code]Command),
		current:  nil,
		tr:       tr,
	}, nil
}

// Push feeds one key event to the matcher. Non-key events are ignored.
func (t *Translator) Push(ev event.Event) {
	if ev.Kind != event.KindKey {
		return
	}
	code := key.Code(ev.Data)
	t.tr.Event("translator push", "key", string(code))

	n := t.current
	if n == nil {
		n = t.root
		if len(t.stack) == 0 {
			if cmd, ok := t.literals[code]; ok {
				t.emit(cmd, []key.Code{code})
				return
			}
		}
	}

	e, ok := n[code]
	switch {
	case ok && !e.leaf():
		t.stack = append(t.stack, code)
		t.current = e.next
		t.tr.Event("translator transition", "stack", key.FormatCodes(t.stack))

	case ok:
		t.emit(e.cmd, append(t.stack, code))
		t.reset()

	case len(t.stack) == 0 && !code.IsNamed() && !code.IsControl():
		// First sight of an unbound printable character: remember it so
		// the next press skips the trie entirely.
		t.literals[code] = CmdSelfInsert
		t.emit(CmdSelfInsert, []key.Code{code})
		t.reset()

	default:
		t.emit(CmdInvalid, append(t.stack, code))
		t.reset()
	}
}

// Get pops the oldest ready result.
func (t *Translator) Get() (Result, bool) {
	if len(t.results) == 0 {
		return Result{}, false
	}
	r := t.results[0]
	t.results = t.results[1:]
	return r, true
}

// Empty reports whether any result is ready.
func (t *Translator) Empty() bool {
	return len(t.results) == 0
}

func (t *Translator) emit(cmd Command, keys []key.Code) {
	out := make([]key.Code, len(keys))
	copy(out, keys)
	t.tr.Event("translator emit", "command", string(cmd), "keys", key.FormatCodes(out))
	t.results = append(t.results, Result{Command: cmd, Keys: out})
}

func (t *Translator) reset() {
	t.stack = t.stack[:0]
	t.current = nil
}
