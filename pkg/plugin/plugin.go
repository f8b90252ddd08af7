package plugin

import (
	"github.com/EricRabil/vue-cli/internal/cachekey"
	"github.com/EricRabil/vue-cli/internal/config"
	"github.com/EricRabil/vue-cli/internal/inclusion"
	"github.com/EricRabil/vue-cli/internal/logging"
	"github.com/EricRabil/vue-cli/internal/parallel"
	"github.com/EricRabil/vue-cli/internal/pipeline"
	"github.com/EricRabil/vue-cli/internal/project"
	"github.com/EricRabil/vue-cli/internal/specifier"
)

type (
	// Plugin applies the transpile policy to one build.
	Plugin = pipeline.Plugin

	// Plan is what Plugin derived for a build before registering it.
	Plan = pipeline.Plan

	Bundler = pipeline.Bundler
	Host    = pipeline.Host
	Rule    = pipeline.Rule
	Use     = pipeline.Use

	// Options are the plugin options, as read from configuration files or
	// decoded from the host's options object.
	Options    = config.Root
	Specifiers = config.Specifiers

	Specifier = specifier.Specifier
	Literal   = specifier.Literal
	Pattern   = specifier.Pattern

	Parallel = parallel.Setting

	Environment = config.Environment
	Mode        = config.Mode

	Decision    = inclusion.Decision
	Fingerprint = cachekey.Fingerprint
	CacheConfig = cachekey.CacheConfig

	Logger = logging.Logger
)

const (
	ModeDevelopment = config.ModeDevelopment
	ModeProduction  = config.ModeProduction
	ModeTest        = config.ModeTest
)

// ErrInvalidSpecifier is returned for transpileDependencies entries that are
// neither a package name nor a pattern.
var ErrInvalidSpecifier = specifier.ErrInvalidSpecifier

// New returns a plugin for a build with opts in env. A nil opts means all defaults.
func New(opts *Options, env Environment) *Plugin {
	return pipeline.New(opts, env)
}

// DecodeOptions decodes the host's options object. Unknown keys are ignored.
func DecodeOptions(options map[string]any) (*Options, error) {
	return config.DecodeOptions(options)
}

// LoadOptions reads and merges configuration files and applies an optional JSON
// patch.
func LoadOptions(files []string, patch []byte) (*Options, error) {
	return config.Load(files, patch)
}

func EnvironmentFromOS() Environment {
	return config.EnvironmentFromOS()
}

func Off() Parallel          { return parallel.Off() }
func On() Parallel           { return parallel.On() }
func Workers(n int) Parallel { return parallel.Workers(n) }

// OpenProject returns a Host for the project directory root.
func OpenProject(root string, mode Mode) (Host, error) {
	p, err := project.Open(root, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}
