package term

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"time"
)

// delayProg recognizes tputs-style delay markers embedded in capability
// strings: $<ms>, optionally suffixed with * (scale by affected lines)
// and/or / (mandatory padding).
var delayProg = regexp.MustCompile(`\$<([0-9]+)((?:/|\*){0,2})>`)

// Buffer is the ordered queue of pending terminal writes. Push never
// touches the device; Flush is the only output path and drains the queue
// atomically from the caller's point of view.
type Buffer struct {
	w     io.Writer
	items []item

	enc *Encoder

	// pacing inputs for delay padding
	pad    Capability
	baud   int
	height func() int

	// sleep is replaceable so tests do not wait on real delays.
	sleep func(time.Duration)
}

type item struct {
	isCap  bool
	text   string
	cap    Capability
	params []int
}

// NewBuffer builds an output buffer for the device writer. pad is the
// terminal's pad-char capability (may be unsupported), baud the advertised
// output speed in bits per second (0 when unknown), height a source for
// the current terminal height used by proportional delays.
func NewBuffer(w io.Writer, pad Capability, baud int, height func() int) *Buffer {
	if height == nil {
		height = func() int { return 0 }
	}
	return &Buffer{
		w:      w,
		enc:    PassthroughEncoder(),
		pad:    pad,
		baud:   baud,
		height: height,
		sleep:  time.Sleep,
	}
}

// SetEncoding switches the text encoding used for literal chunks.
func (b *Buffer) SetEncoding(name string) error {
	enc, err := NewEncoder(name)
	if err != nil {
		return err
	}
	b.enc = enc
	return nil
}

// PushText queues a literal text chunk.
func (b *Buffer) PushText(s string) {
	b.items = append(b.items, item{text: s})
}

// PushCap queues a capability invocation. Unsupported capabilities are
// dropped; callers gate on Supported when the choice matters.
func (b *Buffer) PushCap(c Capability, params ...int) {
	if !c.Supported() {
		return
	}
	b.items = append(b.items, item{isCap: true, cap: c, params: params})
}

// Len reports the number of queued items.
func (b *Buffer) Len() int { return len(b.items) }

// Clear drops all queued items without writing them.
func (b *Buffer) Clear() {
	b.items = b.items[:0]
}

// Flush writes every queued item to the device in order and clears the
// queue. Capability text is expanded with delay padding; literal text is
// encoded with replacement for unmappable characters. The queue is cleared
// even on error so a failed flush is never replayed.
func (b *Buffer) Flush() error {
	defer b.Clear()
	for _, it := range b.items {
		var err error
		if it.isCap {
			err = b.tputs(it.cap.Text(it.params...))
		} else {
			var encoded []byte
			encoded, err = b.enc.Bytes(it.text)
			if err == nil {
				_, err = b.w.Write(encoded)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// tputs writes capability bytes, splicing in pacing at each delay marker:
// pad characters at the advertised character rate when the terminal has a
// pad char and the speed is known, a real sleep otherwise.
func (b *Buffer) tputs(text []byte) error {
	for {
		m := delayProg.FindSubmatchIndex(text)
		if m == nil {
			_, err := b.w.Write(text)
			return err
		}
		if _, err := b.w.Write(text[:m[0]]); err != nil {
			return err
		}
		delay, _ := strconv.Atoi(string(text[m[2]:m[3]]))
		flags := text[m[4]:m[5]]
		text = text[m[1]:]

		if bytes.ContainsRune(flags, '*') {
			delay *= b.height()
		}
		if b.pad.Supported() && b.baud > 0 {
			nchars := b.baud * delay / 1000
			padText := b.pad.Text()
			for i := 0; i < nchars; i++ {
				if _, err := b.w.Write(padText); err != nil {
					return err
				}
			}
		} else if delay > 0 {
			b.sleep(time.Duration(delay) * time.Millisecond)
		}
	}
}
