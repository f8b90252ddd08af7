package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/swaggest/jsonschema-go"

	"github.com/EricRabil/vue-cli/internal/parallel"
	"github.com/EricRabil/vue-cli/internal/specifier"
	"github.com/EricRabil/vue-cli/internal/util"
)

// Root holds the plugin options recognised in project configuration files and in
// the options object handed over by the host.
type Root struct {
	// TranspileDependencies lists installed packages that are compiled even
	// though they live in node_modules.
	TranspileDependencies Specifiers `json:"transpileDependencies,omitempty"`

	// Parallel enables compiler workers in production builds: a boolean, or
	// an explicit worker count.
	Parallel parallel.Setting `json:"parallel,omitzero"`

	// LoaderPath is prepended to the bundler's loader resolution paths.
	LoaderPath string `json:"loaderPath,omitempty"`

	// ServiceDir overrides the resolved CLI service directory.
	ServiceDir string `json:"serviceDir,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (r *Root) Equal(other *Root) bool {
	return util.FastEqual(r, other, func(r, other *Root) bool {
		return r.TranspileDependencies.Equal(other.TranspileDependencies) &&
			r.Parallel.Equal(other.Parallel) &&
			r.LoaderPath == other.LoaderPath &&
			r.ServiceDir == other.ServiceDir
	})
}

// Specifiers is the decoded transpileDependencies list.
type Specifiers []specifier.Specifier

func (a Specifiers) Equal(b Specifiers) bool {
	return slices.Equal(a, b)
}

// Values renders the list the way it is written in configuration files: names as
// strings, patterns as {pattern: source} objects.
func (a Specifiers) Values() []any {
	out := make([]any, 0, len(a))
	for _, s := range a {
		switch s := s.(type) {
		case specifier.Pattern:
			out = append(out, map[string]any{"pattern": string(s)})
		default:
			out = append(out, s.String())
		}
	}
	return out
}

func (a Specifiers) MarshalYAML() (any, error) {
	return a.Values(), nil
}

func (a Specifiers) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Values())
}

func (a *Specifiers) UnmarshalYAML(bs []byte) error {
	var raw []any
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode transpileDependencies: %w", err)
	}
	return a.unmarshal(raw)
}

func (a *Specifiers) UnmarshalJSON(bs []byte) error {
	var raw []any
	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode transpileDependencies: %w", err)
	}
	return a.unmarshal(raw)
}

func (a *Specifiers) unmarshal(raw []any) error {
	specs, err := specifier.FromValues(raw)
	if err != nil {
		return err
	}
	*a = specs
	return nil
}

// PrepareJSONSchema leaves the items unconstrained: invalid entries are reported by
// the decoder with a message naming the option instead of a generic schema error.
func (Specifiers) PrepareJSONSchema(schema *jsonschema.Schema) error {
	schema.Type = nil
	schema.AddType(jsonschema.Array)
	schema.AddType(jsonschema.Null)
	schema.Items = nil
	schema.WithDescription("Package names (strings), or patterns written as {pattern: <regexp>} or \"/<regexp>/\".")
	return nil
}

// Matcher compiles the list.
func (a Specifiers) Matcher() (*specifier.Matcher, error) {
	return specifier.Compile(a)
}

func Validate(data []byte) error {
	var config any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	return rootSchema.Validate(config)
}

func ParseFile(filename string) (*Root, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	root, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", filename, err)
	}
	return root, nil
}

// Parse validates bs (YAML or JSON) against the configuration schema and decodes it.
// An empty document yields the zero configuration.
func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return DecodeOptions(raw)
}

type rawRoot struct {
	TranspileDependencies []any  `mapstructure:"transpileDependencies"`
	Parallel              any    `mapstructure:"parallel"`
	LoaderPath            string `mapstructure:"loaderPath"`
	ServiceDir            string `mapstructure:"serviceDir"`
}

// DecodeOptions decodes an options object as the host passes it to the plugin.
// Keys this plugin does not own are ignored.
func DecodeOptions(options map[string]any) (*Root, error) {
	var raw rawRoot
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	specs, err := specifier.FromValues(raw.TranspileDependencies)
	if err != nil {
		return nil, err
	}

	p, err := parallel.FromValue(raw.Parallel)
	if err != nil {
		return nil, err
	}

	root := &Root{
		Parallel:   p,
		LoaderPath: raw.LoaderPath,
		ServiceDir: raw.ServiceDir,
	}
	if len(specs) > 0 {
		root.TranspileDependencies = specs
	}
	return root, nil
}

// Load reads and merges configFiles (files or directories, later entries win on
// scalar conflicts, lists are concatenated), applies the optional JSON patch and
// parses the result. With no files, the zero configuration is returned.
func Load(configFiles []string, patch []byte) (*Root, error) {
	var doc []byte
	if len(configFiles) > 0 {
		var err error
		doc, err = Merge(configFiles, false)
		if err != nil {
			return nil, err
		}
	}

	if len(patch) > 0 {
		var err error
		doc, err = ApplyPatch(doc, patch)
		if err != nil {
			return nil, err
		}
	}

	if len(doc) == 0 {
		return &Root{}, nil
	}
	return Parse(doc)
}

var errNilRoot = errors.New("nil configuration")

// Marshal renders the effective configuration as YAML.
func (r *Root) Marshal() ([]byte, error) {
	if r == nil {
		return nil, errNilRoot
	}
	return yaml.Marshal(r)
}

// MarshalYAML writes the options in configuration file order. Unset options are
// left out.
func (r *Root) MarshalYAML() (any, error) {
	out := yaml.MapSlice{}
	if len(r.TranspileDependencies) > 0 {
		out = append(out, yaml.MapItem{Key: "transpileDependencies", Value: r.TranspileDependencies.Values()})
	}
	if !r.Parallel.IsZero() {
		v, err := r.Parallel.MarshalYAML()
		if err != nil {
			return nil, err
		}
		out = append(out, yaml.MapItem{Key: "parallel", Value: v})
	}
	if r.LoaderPath != "" {
		out = append(out, yaml.MapItem{Key: "loaderPath", Value: r.LoaderPath})
	}
	if r.ServiceDir != "" {
		out = append(out, yaml.MapItem{Key: "serviceDir", Value: r.ServiceDir})
	}
	return out, nil
}
