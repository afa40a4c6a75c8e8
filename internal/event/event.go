// Package event defines the input event model shared by the console
// session, the event decoder and the keymap translator.
package event

// Kind identifies the type of input event.
type Kind int

const (
	// KindKey is a decoded key press.
	KindKey Kind = iota

	// KindResize reports a change in terminal dimensions.
	KindResize

	// KindScroll reports that the requested cursor position fell outside
	// the current scroll window and the caller should repaint.
	KindScroll
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindResize:
		return "resize"
	case KindScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Event is a single decoded input event. Events are immutable once
// produced: Data holds the decoded text (a character, or a key name such
// as "up" for special keys) and Raw the original bytes.
type Event struct {
	Kind Kind
	Data string
	Raw  []byte
}

// Key creates a key event.
func Key(data string, raw []byte) Event {
	return Event{Kind: KindKey, Data: data, Raw: raw}
}

// Source produces events from raw terminal bytes. The console session
// consumes it one event at a time; Insert allows synthetic events (resize,
// scroll) to join the same queue so ordering stays single-threaded.
type Source interface {
	// Push feeds one raw input byte to the decoder.
	Push(b byte)

	// Get pops the oldest ready event. The second return is false when
	// no event is ready.
	Get() (Event, bool)

	// Empty reports whether any event is ready.
	Empty() bool

	// Insert queues a synthetic event ahead of undecoded input.
	Insert(ev Event)
}
