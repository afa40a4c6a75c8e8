// Package key defines key codes and the keyspec language used to declare
// key bindings.
package key

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Code is a single key code: either a decoded character (exactly one rune)
// or the name of a special key such as "up" or "delete". Named codes are
// always longer than one rune, so the two spaces never collide.
type Code string

// IsNamed returns true if the code names a special key rather than holding
// a decoded character.
func (c Code) IsNamed() bool {
	return utf8.RuneCountInString(string(c)) > 1
}

// IsControl returns true for single-character codes in a control category.
func (c Code) IsControl() bool {
	if c.IsNamed() {
		return false
	}
	r, _ := utf8.DecodeRuneInString(string(c))
	return unicode.IsControl(r)
}

// Ctrl returns the code for Control plus a letter. Only ASCII letters and
// the few traditional punctuation controls are meaningful; other runes are
// returned unchanged.
func Ctrl(r rune) Code {
	switch {
	case r >= 'a' && r <= 'z':
		return Code(rune(r - 'a' + 1))
	case r >= 'A' && r <= 'Z':
		return Code(rune(r - 'A' + 1))
	case r == ' ' || r == '@':
		return Code(rune(0))
	case r == '?':
		return Code(rune(0x7f))
	case r >= '[' && r <= '_':
		return Code(rune(r - '@'))
	default:
		return Code(r)
	}
}

// Meta returns the two-code expansion of Meta plus a key: an escape
// followed by the key itself.
func Meta(c Code) []Code {
	return []Code{Escape, c}
}

// Codes for special keys that decode to a single character.
const (
	Escape Code = "\x1b"
	Enter  Code = "\r"
	Tab    Code = "\t"
	Space  Code = " "
)

// names maps keyspec key names to codes. Names that decode to a single
// character are folded to that character so bindings match what the event
// decoder emits.
var names = map[string]Code{
	"backspace": "backspace",
	"delete":    "delete",
	"down":      "down",
	"end":       "end",
	"enter":     Enter,
	"escape":    Escape,
	"esc":       Escape,
	"home":      "home",
	"insert":    "insert",
	"left":      "left",
	"pagedown":  "pagedown",
	"pageup":    "pageup",
	"return":    Enter,
	"right":     "right",
	"space":     Space,
	"tab":       Tab,
	"up":        "up",
}

func init() {
	for i := 1; i <= 20; i++ {
		n := "f" + strconv.Itoa(i)
		names[n] = Code(n)
	}
}
