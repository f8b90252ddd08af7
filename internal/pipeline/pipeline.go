// Package pipeline wires the transpile policy into a bundler build: it compiles the
// dependency matcher, builds the exclusion predicate, decides on parallel workers,
// fingerprints the compiler cache and registers the resulting rule.
package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/EricRabil/vue-cli/internal/cachekey"
	"github.com/EricRabil/vue-cli/internal/config"
	"github.com/EricRabil/vue-cli/internal/inclusion"
	"github.com/EricRabil/vue-cli/internal/logging"
	"github.com/EricRabil/vue-cli/internal/metrics"
	"github.com/EricRabil/vue-cli/internal/parallel"
)

const (
	RuleName = "js"

	ThreadLoader = "thread-loader"
	BabelLoader  = "babel-loader"

	compilerPackage = "@babel/core"
	presetPackage   = "@vue/babel-preset-app"
	servicePackage  = "@vue/cli-service"

	defaultDecisionCacheSize = 4096
)

// ScriptTest selects the files handled by the rule.
var ScriptTest = regexp.MustCompile(`\.m?jsx?$`)

// Use is one loader applied by a rule.
type Use struct {
	Name    string
	Loader  string
	Options map[string]any
}

// Rule is a module rule as registered with the bundler. Uses run in order.
type Rule struct {
	Name    string
	Test    *regexp.Regexp
	Exclude func(path string) bool
	Uses    []Use
}

// Bundler is the part of the bundler configuration the plugin writes to.
type Bundler interface {
	PrependLoaderPath(dir string)
	AddRule(Rule) error
}

// Host is the build service the plugin runs in.
type Host interface {
	Resolve(rel string) string
	ResolveModule(name string) (string, error)
	PackageVersion(name string) (string, error)
	Browserslist() any
	GenCacheConfig(id string, fp cachekey.Fingerprint) (cachekey.CacheConfig, error)
}

// Plugin holds the options of one build.
type Plugin struct {
	options   *config.Root
	env       config.Environment
	log       *logging.Logger
	cacheSize int
}

func New(options *config.Root, env config.Environment) *Plugin {
	if options == nil {
		options = &config.Root{}
	}
	return &Plugin{
		options:   options,
		env:       env,
		log:       logging.NewNoOpLogger(),
		cacheSize: defaultDecisionCacheSize,
	}
}

func (p *Plugin) WithLogger(l *logging.Logger) *Plugin {
	p.log = l
	return p
}

// WithDecisionCacheSize bounds the number of memoised exclusion decisions.
func (p *Plugin) WithDecisionCacheSize(n int) *Plugin {
	p.cacheSize = n
	return p
}

// Plan is everything the plugin derived for one build, before anything has been
// registered with the bundler.
type Plan struct {
	BuildID     string
	ServiceDir  string
	LoaderPath  string
	Predicate   *inclusion.Predicate
	Parallel    parallel.Decision
	Fingerprint cachekey.Fingerprint
	Cache       cachekey.CacheConfig
	Rule        Rule

	decide func(string) inclusion.Decision
}

// Decide classifies path through the plan's decision cache.
func (pl *Plan) Decide(path string) inclusion.Decision {
	return pl.decide(path)
}

// Plan derives the build configuration from the options, the environment and
// host. An invalid specifier or a missing module is returned as an error.
func (p *Plugin) Plan(host Host) (*Plan, error) {
	buildID := uuid.NewString()
	log := p.log.With("build", buildID)

	matcher, err := p.options.TranspileDependencies.Matcher()
	if err != nil {
		return nil, err
	}

	serviceDir := p.options.ServiceDir
	if serviceDir == "" {
		entry, err := host.ResolveModule(servicePackage)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", servicePackage, err)
		}
		serviceDir = filepath.Dir(entry)
	} else if !filepath.IsAbs(serviceDir) {
		serviceDir = host.Resolve(serviceDir)
	}

	pred := inclusion.New(inclusion.Options{
		Matcher:         matcher,
		ServiceDir:      serviceDir,
		HelperInjection: p.env.HelperInjection,
	})

	decide, err := instrument(pred, p.cacheSize, log)
	if err != nil {
		return nil, err
	}

	fp, err := p.fingerprint(host)
	if err != nil {
		return nil, err
	}

	cache, err := host.GenCacheConfig(BabelLoader, fp)
	if err != nil {
		return nil, err
	}

	par := parallel.Decide(p.env.Production(), p.options.Parallel)

	var uses []Use
	if par.Enabled {
		loader, err := host.ResolveModule(ThreadLoader)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ThreadLoader, err)
		}
		uses = append(uses, Use{Name: ThreadLoader, Loader: loader, Options: par.Options()})
	}

	loader, err := host.ResolveModule(BabelLoader)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", BabelLoader, err)
	}
	uses = append(uses, Use{Name: BabelLoader, Loader: loader, Options: cache.Options()})

	var loaderPath string
	if lp := p.options.LoaderPath; lp != "" {
		loaderPath = lp
		if !filepath.IsAbs(lp) {
			loaderPath = host.Resolve(lp)
		}
	}

	log.Debugf("transpileDependencies matcher: %s", matcher)
	log.Debugf("service directory %s excluded", serviceDir)

	return &Plan{
		BuildID:     buildID,
		ServiceDir:  serviceDir,
		LoaderPath:  loaderPath,
		Predicate:   pred,
		Parallel:    par,
		Fingerprint: fp,
		Cache:       cache,
		Rule: Rule{
			Name:    RuleName,
			Test:    ScriptTest,
			Exclude: func(path string) bool { return decide(path).Exclude },
			Uses:    uses,
		},
		decide: decide,
	}, nil
}

// Apply plans the build and registers the result with bundler. Nothing is
// registered when planning fails.
func (p *Plugin) Apply(host Host, bundler Bundler) error {
	plan, err := p.Plan(host)
	if err != nil {
		return err
	}

	if plan.LoaderPath != "" {
		bundler.PrependLoaderPath(plan.LoaderPath)
	}

	if err := bundler.AddRule(plan.Rule); err != nil {
		return fmt.Errorf("add rule %s: %w", plan.Rule.Name, err)
	}

	recordParallel(plan.Parallel)

	log := p.log.With("build", plan.BuildID)
	switch par := plan.Parallel; {
	case par.Enabled && par.Workers != nil:
		log.Infof("%s rule registered with %d compiler workers", plan.Rule.Name, *par.Workers)
	case par.Enabled:
		log.Infof("%s rule registered with default compiler workers", plan.Rule.Name)
	default:
		log.Infof("%s rule registered", plan.Rule.Name)
	}
	return nil
}

func (p *Plugin) fingerprint(host Host) (cachekey.Fingerprint, error) {
	versions := make(map[string]string, 3)
	for _, name := range []string{compilerPackage, presetPackage, BabelLoader} {
		v, err := host.PackageVersion(name)
		if err != nil {
			return cachekey.Fingerprint{}, fmt.Errorf("version of %s: %w", name, err)
		}
		versions[name] = v
	}

	return cachekey.Build(cachekey.Inputs{
		CompilerVersion: versions[compilerPackage],
		PresetVersion:   versions[presetPackage],
		LoaderVersion:   versions[BabelLoader],
		Modern:          p.env.ModernBuild,
		Browserslist:    host.Browserslist(),
	}), nil
}

// instrument memoises pred and counts every fresh decision.
func instrument(pred *inclusion.Predicate, size int, log *logging.Logger) (func(string) inclusion.Decision, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("decision cache: %w", err)
	}

	return func(path string) inclusion.Decision {
		if v, ok := cache.Get(path); ok {
			metrics.TranspileDecisionCacheHits.Inc()
			return v.(inclusion.Decision)
		}

		d := pred.Decide(path)
		outcome := metrics.Outcome(d.Exclude)
		metrics.TranspileDecisions.WithLabelValues(d.Rule, outcome).Inc()
		log.Debugf("%s %s by rule %s", outcome, path, d.Rule)

		cache.Add(path, d)
		return d
	}, nil
}

func recordParallel(d parallel.Decision) {
	switch {
	case !d.Enabled:
		metrics.ParallelWorkers.Set(0)
	case d.Workers != nil:
		metrics.ParallelWorkers.Set(float64(*d.Workers))
	default:
		metrics.ParallelWorkers.Set(-1)
	}
}
