package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptySpec        = errors.New("empty key specification")
	ErrInvalidSpec      = errors.New("invalid key specification")
	ErrUnmatchedBracket = errors.New("unmatched bracket in key specification")
)

// ParseSpec parses a keyspec string into the sequence of key codes it
// stands for.
//
// Supported forms, concatenated freely:
//   - Literal characters: "a", "gg", "?"
//   - Control keys: "<C-a>", "<C-x><C-s>"
//   - Meta keys: "<M-f>" (expands to escape followed by the key)
//   - Named keys: "<up>", "<delete>", "<f5>", "<enter>"
//
// A literal "<" can be written as "<lt>".
func ParseSpec(spec string) ([]Code, error) {
	if spec == "" {
		return nil, ErrEmptySpec
	}

	var codes []Code
	for len(spec) > 0 {
		if spec[0] != '<' {
			r, size := utf8.DecodeRuneInString(spec)
			codes = append(codes, Code(r))
			spec = spec[size:]
			continue
		}

		end := strings.IndexByte(spec, '>')
		if end < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnmatchedBracket, spec)
		}
		bracketed, err := parseBracketed(spec[1:end])
		if err != nil {
			return nil, err
		}
		codes = append(codes, bracketed...)
		spec = spec[end+1:]
	}
	return codes, nil
}

// MustParseSpec parses a keyspec and panics on error. Use only for
// known-valid specs in initialization code.
func MustParseSpec(spec string) []Code {
	codes, err := ParseSpec(spec)
	if err != nil {
		panic("invalid keyspec: " + spec + ": " + err.Error())
	}
	return codes
}

// parseBracketed parses the inside of a <...> group.
func parseBracketed(inner string) ([]Code, error) {
	if inner == "" {
		return nil, fmt.Errorf("%w: empty <>", ErrInvalidSpec)
	}

	lower := strings.ToLower(inner)
	if lower == "lt" {
		return []Code{"<"}, nil
	}

	// Modifier prefixes: C- and M- may stack, meta outermost.
	switch {
	case strings.HasPrefix(inner, "C-") || strings.HasPrefix(inner, "c-"):
		rest, err := parseBracketed(inner[2:])
		if err != nil {
			return nil, err
		}
		if len(rest) != 1 || rest[0].IsNamed() {
			return nil, fmt.Errorf("%w: control modifier needs a single character in %q", ErrInvalidSpec, inner)
		}
		r, _ := utf8.DecodeRuneInString(string(rest[0]))
		return []Code{Ctrl(r)}, nil

	case strings.HasPrefix(inner, "M-") || strings.HasPrefix(inner, "m-"):
		rest, err := parseBracketed(inner[2:])
		if err != nil {
			return nil, err
		}
		if len(rest) != 1 {
			return nil, fmt.Errorf("%w: meta modifier in %q", ErrInvalidSpec, inner)
		}
		return Meta(rest[0]), nil
	}

	if code, ok := names[lower]; ok {
		return []Code{code}, nil
	}

	// A bare single character survives bracketing: <a> is just a.
	if utf8.RuneCountInString(inner) == 1 {
		r, _ := utf8.DecodeRuneInString(inner)
		return []Code{Code(r)}, nil
	}

	return nil, fmt.Errorf("%w: unknown key name %q", ErrInvalidSpec, inner)
}

// FormatCodes renders a code sequence back into a readable spec, for error
// messages and trace output.
func FormatCodes(codes []Code) string {
	var sb strings.Builder
	for _, c := range codes {
		switch {
		case c.IsNamed():
			sb.WriteString("<" + string(c) + ">")
		case c == Escape:
			sb.WriteString("<esc>")
		case c.IsControl():
			r, _ := utf8.DecodeRuneInString(string(c))
			if r >= 1 && r <= 26 {
				sb.WriteString("<C-" + string('a'+r-1) + ">")
			} else {
				sb.WriteString(fmt.Sprintf("<%#x>", r))
			}
		default:
			sb.WriteString(string(c))
		}
	}
	return sb.String()
}
