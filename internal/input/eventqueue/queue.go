// Package eventqueue decodes raw terminal input bytes into events: special
// keys through the terminal's key-sequence table, everything else through
// the session's input encoding.
package eventqueue

import (
	"sort"
	"unicode/utf8"

	"github.com/dshills/termline/internal/event"
	"github.com/dshills/termline/internal/term"
	"github.com/dshills/termline/internal/trace"
)

// seqNode is one state of the key-sequence automaton. A node with a name
// is a complete sequence; interior nodes branch on the next byte.
type seqNode struct {
	next map[byte]*seqNode
	name string
}

// Queue implements event.Source. Bytes pushed one at a time walk the
// sequence automaton; a complete match emits a named key event, a miss on
// an escape-initial buffer emits the escape alone and replays the rest,
// and anything else is decoded as text.
type Queue struct {
	root *seqNode
	cur  *seqNode

	buf    []byte
	events []event.Event

	dec *term.Decoder
	tr  *trace.Tracer
}

// New builds a queue over the terminal's key-sequence table (normally
// Model.KeySequences), decoding plain input with the named encoding.
func New(sequences map[string]string, encoding string, tr *trace.Tracer) (*Queue, error) {
	dec, err := term.NewDecoder(encoding)
	if err != nil {
		return nil, err
	}
	root := compileSequences(sequences)
	return &Queue{root: root, cur: root, dec: dec, tr: tr}, nil
}

// compileSequences builds the byte automaton. When two sequences conflict
// (one a prefix of the other) the shorter wins, so the decoder never has
// to time out waiting for a longer match.
func compileSequences(seqs map[string]string) *seqNode {
	keys := make([]string, 0, len(seqs))
	for seq := range seqs {
		keys = append(keys, seq)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	root := &seqNode{next: make(map[byte]*seqNode)}
	for _, seq := range keys {
		n := root
		ok := true
		for i := 0; i < len(seq); i++ {
			if n.name != "" {
				ok = false
				break
			}
			child := n.next[seq[i]]
			if child == nil {
				child = &seqNode{next: make(map[byte]*seqNode)}
				n.next[seq[i]] = child
			}
			n = child
		}
		if !ok || len(n.next) > 0 || n.name != "" {
			continue
		}
		n.name = seqs[seq]
	}
	return root
}

// Push feeds one raw input byte to the decoder.
func (q *Queue) Push(b byte) {
	q.buf = append(q.buf, b)

	if child := q.cur.next[b]; child != nil {
		if child.name != "" {
			raw := q.flushBuf()
			q.tr.Event("key sequence", "name", child.name)
			q.events = append(q.events, event.Key(child.name, raw))
			q.cur = q.root
			return
		}
		q.cur = child
		return
	}

	if q.buf[0] == 0x1b {
		// Unrecognized escape sequence. Emit the escape on its own so
		// it can still bind as a meta prefix, then replay the rest.
		q.tr.Event("unrecognized escape sequence")
		raw := q.flushBuf()
		q.cur = q.root
		q.events = append(q.events, event.Key("\x1b", []byte{0x1b}))
		for _, c := range raw[1:] {
			q.Push(c)
		}
		return
	}

	if q.dec.Name() == "utf-8" && !utf8Complete(q.buf) {
		return // wait for the rest of the rune
	}
	raw := q.flushBuf()
	q.cur = q.root
	q.events = append(q.events, event.Key(q.dec.String(raw), raw))
}

// Get pops the oldest ready event.
func (q *Queue) Get() (event.Event, bool) {
	if len(q.events) == 0 {
		return event.Event{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}

// Empty reports whether any event is ready.
func (q *Queue) Empty() bool { return len(q.events) == 0 }

// Insert queues a synthetic event behind those already decoded, keeping
// delivery single-threaded and ordered.
func (q *Queue) Insert(ev event.Event) {
	q.tr.Event("insert event", "kind", ev.Kind.String())
	q.events = append(q.events, ev)
}

// SetEncoding switches the text decoding for subsequent plain input.
func (q *Queue) SetEncoding(name string) error {
	dec, err := term.NewDecoder(name)
	if err != nil {
		return err
	}
	q.dec = dec
	return nil
}

func (q *Queue) flushBuf() []byte {
	raw := q.buf
	q.buf = nil
	return raw
}

// utf8Complete reports whether the trailing rune in b is fully buffered.
// Malformed leading bytes count as complete so they surface as U+FFFD
// instead of stalling the decoder.
func utf8Complete(b []byte) bool {
	i := len(b) - 1
	for i > 0 && len(b)-i < utf8.UTFMax && b[i]&0xc0 == 0x80 {
		i--
	}
	return utf8.FullRune(b[i:])
}
