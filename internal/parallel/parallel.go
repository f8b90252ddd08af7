// Package parallel decides whether compilation is fanned out to worker threads.
package parallel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/swaggest/jsonschema-go"

	"github.com/EricRabil/vue-cli/internal/util"
)

// Setting is the user's `parallel` option: absent, a boolean, or a worker count.
// The zero value is "absent".
type Setting struct {
	enabled bool
	workers *int
}

// Off returns an explicit `false` setting.
func Off() Setting { return Setting{} }

// On returns `true`: parallel with the dispatcher's default worker count.
func On() Setting { return Setting{enabled: true} }

// Workers returns an explicit worker count. Zero is falsy; other values, including
// negative ones, are passed through to the dispatcher untouched.
func Workers(n int) Setting {
	return Setting{enabled: n != 0, workers: &n}
}

// FromValue converts a decoded configuration value (nil, bool or an integer).
func FromValue(v any) (Setting, error) {
	switch v := v.(type) {
	case nil:
		return Setting{}, nil
	case Setting:
		return v, nil
	case bool:
		if v {
			return On(), nil
		}
		return Off(), nil
	case int:
		return Workers(v), nil
	case int64:
		return Workers(int(v)), nil
	case uint64:
		return Workers(int(v)), nil
	case float64:
		if v != float64(int(v)) {
			return Setting{}, fmt.Errorf("parallel: worker count must be an integer, got %v", v)
		}
		return Workers(int(v)), nil
	case json.Number:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return Setting{}, fmt.Errorf("parallel: %w", err)
		}
		return Workers(n), nil
	}
	return Setting{}, fmt.Errorf("parallel: expected boolean or integer, got %T", v)
}

// Truthy reports whether the setting asks for parallelism.
func (s Setting) Truthy() bool {
	return s.enabled
}

// IsZero reports whether the option was left unset or set to false.
func (s Setting) IsZero() bool {
	return !s.enabled && s.workers == nil
}

// Count returns the explicit worker count, if one was configured.
func (s Setting) Count() (int, bool) {
	if s.workers == nil {
		return 0, false
	}
	return *s.workers, true
}

// Equal compares two settings by value.
func (s Setting) Equal(other Setting) bool {
	return s.enabled == other.enabled && util.PtrEqual(s.workers, other.workers)
}

func (s Setting) String() string {
	if n, ok := s.Count(); ok {
		return strconv.Itoa(n)
	}
	return strconv.FormatBool(s.enabled)
}

func (s Setting) value() any {
	if n, ok := s.Count(); ok {
		return n
	}
	return s.enabled
}

func (s Setting) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value())
}

func (s Setting) MarshalYAML() (any, error) {
	return s.value(), nil
}

func (s *Setting) UnmarshalJSON(bs []byte) error {
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("parallel: %w", err)
	}
	v, err := FromValue(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s *Setting) UnmarshalYAML(bs []byte) error {
	var raw any
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("parallel: %w", err)
	}
	v, err := FromValue(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PrepareJSONSchema describes the option as `boolean | integer`.
func (Setting) PrepareJSONSchema(schema *jsonschema.Schema) error {
	schema.Type = nil
	schema.AddType(jsonschema.Boolean)
	schema.AddType(jsonschema.Integer)
	schema.Properties = nil
	return nil
}

// Decision is the outcome of Decide. Workers is nil when the dispatcher's own
// default should be used.
type Decision struct {
	Enabled bool `json:"enabled"`
	Workers *int `json:"workers,omitempty"`
}

// Decide enables parallel compilation only for production builds with a truthy
// setting. It never invents a worker count.
func Decide(production bool, s Setting) Decision {
	if !production || !s.Truthy() {
		return Decision{}
	}
	d := Decision{Enabled: true}
	if n, ok := s.Count(); ok {
		d.Workers = &n
	}
	return d
}

// Options returns the dispatch stage options for d: {"workers": n} when a count was
// given, nil otherwise.
func (d Decision) Options() map[string]any {
	if !d.Enabled || d.Workers == nil {
		return nil
	}
	return map[string]any{"workers": *d.Workers}
}
