// Package inclusion decides whether a module path is excluded from the compiler
// pass. Third-party code is excluded by default; the rules below carve out the
// exceptions in a fixed order and the first rule that matches wins.
package inclusion

import (
	"strings"

	"github.com/EricRabil/vue-cli/internal/specifier"
)

// Rule names, in evaluation order.
const (
	RuleComponentScript     = "component-script"
	RuleServiceInternal     = "service-internal"
	RuleRuntimeHelper       = "runtime-helper"
	RuleTranspileDependency = "transpile-dependency"
	RuleNodeModules         = "node-modules"
	RuleDefault             = "default"
)

// componentScriptSuffixes identify script blocks extracted from single-file
// components by the component loader.
var componentScriptSuffixes = []string{".vue.js", ".vue.jsx"}

// runtimeHelperFragments locate the compiler's runtime helper package on either
// separator convention.
var runtimeHelperFragments = []string{"@babel/runtime", `@babel\runtime`}

const thirdPartyDir = "node_modules"

// Options holds everything a Predicate closes over. It is fixed for the lifetime of
// a build.
type Options struct {
	// Matcher is the compiled transpileDependencies list; nil when none are
	// configured.
	Matcher *specifier.Matcher

	// ServiceDir is the installed CLI service directory. Files below it are
	// never compiled. Empty disables the rule.
	ServiceDir string

	// HelperInjection reports that the project's compiler preset injects runtime
	// helper imports, in which case the helper package must be compiled too.
	HelperInjection bool
}

// Rule is one step of the chain: when Match reports true the decision is Exclude
// and evaluation stops.
type Rule struct {
	Name    string
	Match   func(path string) bool
	Exclude bool
}

// Decision is the outcome for one path. Rule names the rule that produced it.
type Decision struct {
	Exclude bool   `json:"exclude"`
	Rule    string `json:"rule"`
}

// Predicate is an ordered rule chain. It holds no mutable state and is safe for
// concurrent use.
type Predicate struct {
	rules []Rule
}

// New builds the rule chain for opts.
func New(opts Options) *Predicate {
	return &Predicate{rules: []Rule{
		{
			Name:    RuleComponentScript,
			Match:   isComponentScript,
			Exclude: false,
		},
		{
			Name: RuleServiceInternal,
			Match: func(path string) bool {
				return opts.ServiceDir != "" && strings.HasPrefix(path, opts.ServiceDir)
			},
			Exclude: true,
		},
		{
			Name: RuleRuntimeHelper,
			Match: func(path string) bool {
				return opts.HelperInjection && isRuntimeHelper(path)
			},
			Exclude: false,
		},
		{
			Name:    RuleTranspileDependency,
			Match:   opts.Matcher.MatchString,
			Exclude: false,
		},
		{
			Name:    RuleNodeModules,
			Match:   func(path string) bool { return strings.Contains(path, thirdPartyDir) },
			Exclude: true,
		},
		{
			Name:    RuleDefault,
			Match:   func(string) bool { return true },
			Exclude: false,
		},
	}}
}

// Decide runs the chain for path.
func (p *Predicate) Decide(path string) Decision {
	for _, r := range p.rules {
		if r.Match(path) {
			return Decision{Exclude: r.Exclude, Rule: r.Name}
		}
	}
	return Decision{Rule: RuleDefault}
}

// Excluded is the bundler-facing form of Decide: true means "do not compile".
func (p *Predicate) Excluded(path string) bool {
	return p.Decide(path).Exclude
}

// Rules returns a copy of the chain in evaluation order.
func (p *Predicate) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

func isComponentScript(path string) bool {
	for _, s := range componentScriptSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func isRuntimeHelper(path string) bool {
	for _, f := range runtimeHelperFragments {
		if strings.Contains(path, f) {
			return true
		}
	}
	return false
}
