package keymap

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/termline/internal/input/key"
)

// LoadFile loads a binding table from a JSON keymap file.
//
// Expected shape:
//
//	{
//	  "name": "user",
//	  "bindings": [
//	    {"keys": "<C-a>", "command": "beginning-of-line"},
//	    {"keys": "<C-x><C-u>", "command": "upcase-region"}
//	  ]
//	}
func LoadFile(path string) ([]Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening keymap file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) ([]Binding, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("keymap config is not valid JSON")
	}

	raw := gjson.GetBytes(data, "bindings")
	if !raw.Exists() || !raw.IsArray() {
		return nil, fmt.Errorf("keymap config has no bindings array")
	}

	var bindings []Binding
	var parseErr error
	raw.ForEach(func(_, value gjson.Result) bool {
		keys := value.Get("keys").String()
		command := value.Get("command").String()
		if keys == "" || command == "" {
			parseErr = fmt.Errorf("binding %s: keys and command are required", value.Raw)
			return false
		}
		if _, err := key.ParseSpec(keys); err != nil {
			parseErr = err
			return false
		}
		bindings = append(bindings, Binding{Keys: keys, Command: Command(command)})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return bindings, nil
}

// SaveFile writes a binding table as a JSON keymap file, normalizing the
// field order. Useful for seeding a user config from Default().
func SaveFile(path, name string, bindings []Binding) error {
	out := []byte(`{}`)
	var err error
	if out, err = sjson.SetBytes(out, "name", name); err != nil {
		return fmt.Errorf("encoding keymap: %w", err)
	}
	for i, b := range bindings {
		if out, err = sjson.SetBytes(out, fmt.Sprintf("bindings.%d.keys", i), b.Keys); err != nil {
			return fmt.Errorf("encoding keymap: %w", err)
		}
		if out, err = sjson.SetBytes(out, fmt.Sprintf("bindings.%d.command", i), string(b.Command)); err != nil {
			return fmt.Errorf("encoding keymap: %w", err)
		}
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing keymap file: %w", err)
	}
	return nil
}
