// Package keymap compiles declarative key bindings into a lookup trie and
// translates key events into editing commands.
package keymap

// Command identifies an editing command. The translator only routes
// commands; their meaning belongs to the editing loop.
type Command string

// Commands produced by the translator itself.
const (
	// CmdSelfInsert inserts the typed character literally. Emitted for
	// any unbound printable character.
	CmdSelfInsert Command = "self-insert"

	// CmdInvalid reports an unrecognized key sequence. The result carries
	// the full offending key stack.
	CmdInvalid Command = "invalid-key"
)

// Commands used by the default table. Callers may define their own; these
// exist so the default bindings and the demo editor agree on names.
const (
	CmdAccept           Command = "accept"
	CmdBackspace        Command = "backspace"
	CmdBackwardWord     Command = "backward-word"
	CmdBeginningOfLine  Command = "beginning-of-line"
	CmdClearScreen      Command = "clear-screen"
	CmdDelete           Command = "delete"
	CmdDown             Command = "down"
	CmdEndOfLine        Command = "end-of-line"
	CmdForwardWord      Command = "forward-word"
	CmdInterrupt        Command = "interrupt"
	CmdKillLine         Command = "kill-line"
	CmdKillWord         Command = "kill-word"
	CmdLeft             Command = "left"
	CmdQuotedInsert     Command = "quoted-insert"
	CmdRight            Command = "right"
	CmdSuspend          Command = "suspend"
	CmdTranspose        Command = "transpose-characters"
	CmdUnixLineDiscard  Command = "unix-line-discard"
	CmdUnixWordRubout   Command = "unix-word-rubout"
	CmdUp               Command = "up"
	CmdUpcaseRegion     Command = "upcase-region"
	CmdYank             Command = "yank"
	CmdEndOfFile        Command = "end-of-file"
	CmdBackwardKillWord Command = "backward-kill-word"
)

// Binding pairs a keyspec with the command it triggers.
type Binding struct {
	// Keys is the keyspec (see the key package for the format).
	Keys string

	// Command is the command identifier to emit.
	Command Command
}

// Default returns the default emacs-style binding table.
func Default() []Binding {
	return []Binding{
		{"<C-a>", CmdBeginningOfLine},
		{"<C-b>", CmdLeft},
		{"<C-c>", CmdInterrupt},
		{"<C-d>", CmdDelete},
		{"<C-e>", CmdEndOfLine},
		{"<C-f>", CmdRight},
		{"<C-h>", CmdBackspace},
		{"<C-j>", CmdAccept},
		{"<C-k>", CmdKillLine},
		{"<C-l>", CmdClearScreen},
		{"<C-n>", CmdDown},
		{"<C-p>", CmdUp},
		{"<C-q>", CmdQuotedInsert},
		{"<C-t>", CmdTranspose},
		{"<C-u>", CmdUnixLineDiscard},
		{"<C-w>", CmdUnixWordRubout},
		{"<C-y>", CmdYank},
		{"<C-z>", CmdSuspend},
		{"<C-x><C-u>", CmdUpcaseRegion},
		{"<M-b>", CmdBackwardWord},
		{"<M-d>", CmdKillWord},
		{"<M-f>", CmdForwardWord},
		{"<M-backspace>", CmdBackwardKillWord},
		{"<enter>", CmdAccept},
		{"<backspace>", CmdBackspace},
		{"<C-?>", CmdBackspace},
		{"<delete>", CmdDelete},
		{"<up>", CmdUp},
		{"<down>", CmdDown},
		{"<left>", CmdLeft},
		{"<right>", CmdRight},
		{"<home>", CmdBeginningOfLine},
		{"<end>", CmdEndOfLine},
	}
}
