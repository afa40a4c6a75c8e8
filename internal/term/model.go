package term

import (
	"fmt"

	"github.com/xo/terminfo"
)

// Model is the per-terminal capability set the refresh engine and event
// decoder work from. It is immutable after Load.
type Model struct {
	// Term is the terminal type the model was loaded for.
	Term string

	Bell            Capability
	ClearScreen     Capability
	ClrEOL          Capability
	ColumnAddress   Capability
	CursorAddress   Capability
	CursorDown      Capability
	CursorInvisible Capability
	CursorLeft      Capability
	CursorNormal    Capability
	CursorRight     Capability
	CursorUp        Capability
	DeleteCharacter Capability
	InsertCharacter Capability
	KeypadLocal     Capability
	KeypadXmit      Capability
	PadChar         Capability
	ParmDch         Capability
	ParmDownCursor  Capability
	ParmIch         Capability
	ParmLeftCursor  Capability
	ParmRightCursor Capability
	ParmUpCursor    Capability
	ScrollForward   Capability
	ScrollReverse   Capability

	keys map[string]string
}

// Load reads the capability database entry for the given terminal type.
// An empty term falls back to $TERM.
func Load(termName string) (*Model, error) {
	var (
		ti  *terminfo.Terminfo
		err error
	)
	if termName == "" {
		ti, err = terminfo.LoadFromEnv()
	} else {
		ti, err = terminfo.Load(termName)
	}
	if err != nil {
		return nil, fmt.Errorf("loading terminfo for %q: %w", termName, err)
	}

	m := &Model{Term: termName}
	m.Bell = capOf(ti, "bel", terminfo.Bell)
	m.ClearScreen = capOf(ti, "clear", terminfo.ClearScreen)
	m.ClrEOL = capOf(ti, "el", terminfo.ClrEol)
	m.ColumnAddress = capOf(ti, "hpa", terminfo.ColumnAddress)
	m.CursorAddress = capOf(ti, "cup", terminfo.CursorAddress)
	m.CursorDown = capOf(ti, "cud1", terminfo.CursorDown)
	m.CursorInvisible = capOf(ti, "civis", terminfo.CursorInvisible)
	m.CursorLeft = capOf(ti, "cub1", terminfo.CursorLeft)
	m.CursorNormal = capOf(ti, "cnorm", terminfo.CursorNormal)
	m.CursorRight = capOf(ti, "cuf1", terminfo.CursorRight)
	m.CursorUp = capOf(ti, "cuu1", terminfo.CursorUp)
	m.DeleteCharacter = capOf(ti, "dch1", terminfo.DeleteCharacter)
	m.InsertCharacter = capOf(ti, "ich1", terminfo.InsertCharacter)
	m.KeypadLocal = capOf(ti, "rmkx", terminfo.KeypadLocal)
	m.KeypadXmit = capOf(ti, "smkx", terminfo.KeypadXmit)
	m.PadChar = capOf(ti, "pad", terminfo.PadChar)
	m.ParmDch = capOf(ti, "dch", terminfo.ParmDch)
	m.ParmDownCursor = capOf(ti, "cud", terminfo.ParmDownCursor)
	m.ParmIch = capOf(ti, "ich", terminfo.ParmIch)
	m.ParmLeftCursor = capOf(ti, "cub", terminfo.ParmLeftCursor)
	m.ParmRightCursor = capOf(ti, "cuf", terminfo.ParmRightCursor)
	m.ParmUpCursor = capOf(ti, "cuu", terminfo.ParmUpCursor)
	m.ScrollForward = capOf(ti, "ind", terminfo.ScrollForward)
	m.ScrollReverse = capOf(ti, "ri", terminfo.ScrollReverse)
	m.keys = keySequences(ti)
	return m, nil
}

// KeySequences maps raw input byte sequences to the key names the event
// decoder emits ("up", "delete", "f5", ...).
func (m *Model) KeySequences() map[string]string {
	out := make(map[string]string, len(m.keys))
	for seq, name := range m.keys {
		out[seq] = name
	}
	return out
}

// capOf wraps one terminfo string capability. Unset entries produce an
// unsupported capability.
func capOf(ti *terminfo.Terminfo, name string, i int) Capability {
	if len(ti.Strings[i]) == 0 {
		return Capability{Name: name}
	}
	return Capability{
		Name: name,
		Render: func(params ...int) []byte {
			args := make([]interface{}, len(params))
			for j, p := range params {
				args[j] = p
			}
			return []byte(ti.Printf(i, args...))
		},
	}
}

// keyCaps lists the input capabilities worth decoding, in terminfo order.
var keyCaps = []struct {
	cap  int
	name string
}{
	{terminfo.KeyUp, "up"},
	{terminfo.KeyDown, "down"},
	{terminfo.KeyLeft, "left"},
	{terminfo.KeyRight, "right"},
	{terminfo.KeyHome, "home"},
	{terminfo.KeyEnd, "end"},
	{terminfo.KeyIc, "insert"},
	{terminfo.KeyDc, "delete"},
	{terminfo.KeyBackspace, "backspace"},
	{terminfo.KeyNpage, "pagedown"},
	{terminfo.KeyPpage, "pageup"},
	{terminfo.KeyF1, "f1"},
	{terminfo.KeyF2, "f2"},
	{terminfo.KeyF3, "f3"},
	{terminfo.KeyF4, "f4"},
	{terminfo.KeyF5, "f5"},
	{terminfo.KeyF6, "f6"},
	{terminfo.KeyF7, "f7"},
	{terminfo.KeyF8, "f8"},
	{terminfo.KeyF9, "f9"},
	{terminfo.KeyF10, "f10"},
	{terminfo.KeyF11, "f11"},
	{terminfo.KeyF12, "f12"},
	{terminfo.KeyF13, "f13"},
	{terminfo.KeyF14, "f14"},
	{terminfo.KeyF15, "f15"},
	{terminfo.KeyF16, "f16"},
	{terminfo.KeyF17, "f17"},
	{terminfo.KeyF18, "f18"},
	{terminfo.KeyF19, "f19"},
	{terminfo.KeyF20, "f20"},
}

// ansiKeyDefaults covers the sequences terminals emit in practice even
// when the database entry only lists the application-mode variants.
var ansiKeyDefaults = map[string]string{
	"\x1b[A":  "up",
	"\x1b[B":  "down",
	"\x1b[D":  "left",
	"\x1b[C":  "right",
	"\x1bOA":  "up",
	"\x1bOB":  "down",
	"\x1bOD":  "left",
	"\x1bOC":  "right",
	"\x1b[H":  "home",
	"\x1b[F":  "end",
	"\x1b[1~": "home",
	"\x1b[4~": "end",
	"\x1b[2~": "insert",
	"\x1b[3~": "delete",
	"\x1b[5~": "pageup",
	"\x1b[6~": "pagedown",
}

func keySequences(ti *terminfo.Terminfo) map[string]string {
	keys := make(map[string]string, len(keyCaps)+len(ansiKeyDefaults))
	for seq, name := range ansiKeyDefaults {
		keys[seq] = name
	}
	// Database entries win over the generic defaults.
	for _, kc := range keyCaps {
		if s := ti.Strings[kc.cap]; len(s) > 0 {
			keys[string(s)] = kc.name
		}
	}
	return keys
}
