package keymap

import (
	"errors"
	"fmt"

	"github.com/dshills/termline/internal/input/key"
)

// Compile errors
var (
	ErrPrefixConflict = errors.New("key sequence is a prefix of another binding")
	ErrDuplicate      = errors.New("duplicate key sequence")
)

// node is one level of the compiled trie. Each code maps to exactly one
// entry, which is either a subtrie (sequence continues) or a command leaf,
// never both.
type node map[key.Code]entry

type entry struct {
	next node
	cmd  Command
}

func (e entry) leaf() bool { return e.next == nil }

// compile builds the trie from a binding table. Tables must be prefix-free:
// a spec that is a strict prefix of another cannot be matched by the
// greedy longest-prefix translator and is rejected here rather than
// silently shadowed at runtime.
func compile(bindings []Binding) (node, error) {
	root := make(node)
	for _, b := range bindings {
		codes, err := key.ParseSpec(b.Keys)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Keys, err)
		}
		if err := insert(root, codes, b.Command); err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Keys, err)
		}
	}
	return root, nil
}

func insert(n node, codes []key.Code, cmd Command) error {
	head, rest := codes[0], codes[1:]
	e, exists := n[head]

	if len(rest) == 0 {
		if exists {
			if e.leaf() {
				return fmt.Errorf("%w: %s", ErrDuplicate, key.FormatCodes(codes))
			}
			return fmt.Errorf("%w: %s", ErrPrefixConflict, key.FormatCodes(codes))
		}
		n[head] = entry{cmd: cmd}
		return nil
	}

	if exists && e.leaf() {
		return fmt.Errorf("%w: %s", ErrPrefixConflict, key.FormatCodes(codes[:1]))
	}
	if !exists {
		e = entry{next: make(node)}
		n[head] = e
	}
	return insert(e.next, rest, cmd)
}
