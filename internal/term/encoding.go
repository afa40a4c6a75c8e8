package term

import (
	"fmt"
	"strings"

	gdamore "github.com/gdamore/encoding"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Encoder converts output text into the terminal's character encoding,
// substituting a replacement for unmappable characters. The zero-cost
// passthrough form handles the common UTF-8 case.
type Encoder struct {
	name string
	enc  *encoding.Encoder
}

// PassthroughEncoder returns the UTF-8 encoder, which writes text bytes
// unchanged.
func PassthroughEncoder() *Encoder {
	return &Encoder{name: "utf-8"}
}

// NewEncoder resolves an encoding by name. The traditional terminal
// charsets resolve through their dedicated tables; everything else goes
// through the IANA registry.
func NewEncoder(name string) (*Encoder, error) {
	e, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return PassthroughEncoder(), nil
	}
	return &Encoder{
		name: name,
		enc:  encoding.ReplaceUnsupported(e.NewEncoder()),
	}, nil
}

// Name returns the encoding name the encoder was built from.
func (e *Encoder) Name() string { return e.name }

// Decoder converts raw terminal input bytes into text, substituting the
// Unicode replacement character for undecodable input. As with Encoder,
// the UTF-8 form is a passthrough.
type Decoder struct {
	name string
	dec  *encoding.Decoder
}

// NewDecoder resolves a decoding by name, with the same name handling as
// NewEncoder.
func NewDecoder(name string) (*Decoder, error) {
	e, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return &Decoder{name: "utf-8"}, nil
	}
	return &Decoder{name: name, dec: e.NewDecoder()}, nil
}

// Name returns the encoding name the decoder was built from.
func (d *Decoder) Name() string { return d.name }

// String decodes raw input bytes. Undecodable bytes become U+FFFD rather
// than an error: input already read cannot be pushed back at the caller.
func (d *Decoder) String(raw []byte) string {
	if d.dec == nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	s, err := d.dec.Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(s)
}

// Bytes encodes s for the terminal.
func (e *Encoder) Bytes(s string) ([]byte, error) {
	if e.enc == nil {
		return []byte(s), nil
	}
	return e.enc.Bytes([]byte(s))
}

// lookupEncoding maps an encoding name to its table. A nil result with a
// nil error means passthrough UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch normalizeEncodingName(name) {
	case "", "utf8":
		return nil, nil
	case "ascii", "usascii", "646":
		return gdamore.ASCII, nil
	case "latin1", "iso88591", "8859":
		return gdamore.ISO8859_1, nil
	}

	e, err := ianaindex.IANA.Encoding(name)
	if err != nil || e == nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return e, nil
}

func normalizeEncodingName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == ' ' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
