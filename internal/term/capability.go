// Package term wraps the terminal capability database and owns the
// buffered output path to the device.
package term

// Capability is a named terminal control operation. Render expands the
// capability's control bytes for the given parameters; a nil Render means
// the terminal does not support the operation. Rendered text may contain
// tputs-style delay markers ($<ms>), which the output buffer interprets at
// flush time.
type Capability struct {
	Name   string
	Render func(params ...int) []byte
}

// Supported reports whether the terminal implements this capability.
func (c Capability) Supported() bool {
	return c.Render != nil
}

// Text renders the capability's control bytes. Returns nil when
// unsupported; callers gate on Supported before queueing.
func (c Capability) Text(params ...int) []byte {
	if c.Render == nil {
		return nil
	}
	return c.Render(params...)
}

// StaticCap builds a capability that renders fixed bytes, ignoring
// parameters. Used by tests and by fallback entries that do not come from
// the capability database.
func StaticCap(name string, text []byte) Capability {
	return Capability{Name: name, Render: func(...int) []byte { return text }}
}
