package pipeline_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/EricRabil/vue-cli/internal/cachekey"
	"github.com/EricRabil/vue-cli/internal/config"
	"github.com/EricRabil/vue-cli/internal/parallel"
	"github.com/EricRabil/vue-cli/internal/pipeline"
	"github.com/EricRabil/vue-cli/internal/specifier"
)

type fakeHost struct {
	root         string
	modules      map[string]string
	versions     map[string]string
	browserslist any
	cacheErr     error
	fingerprints []cachekey.Fingerprint
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		root: "/proj",
		modules: map[string]string{
			"@vue/cli-service": "/proj/node_modules/@vue/cli-service/lib/Service.js",
			"babel-loader":     "/proj/node_modules/babel-loader/lib/index.js",
			"thread-loader":    "/proj/node_modules/thread-loader/dist/cjs.js",
		},
		versions: map[string]string{
			"@babel/core":           "7.24.0",
			"@vue/babel-preset-app": "5.0.8",
			"babel-loader":          "8.3.0",
		},
		browserslist: []any{"> 1%"},
	}
}

func (h *fakeHost) Resolve(rel string) string {
	return filepath.Join(h.root, rel)
}

func (h *fakeHost) ResolveModule(name string) (string, error) {
	if p, ok := h.modules[name]; ok {
		return p, nil
	}
	return "", errors.New("cannot find module " + name)
}

func (h *fakeHost) PackageVersion(name string) (string, error) {
	if v, ok := h.versions[name]; ok {
		return v, nil
	}
	return "", errors.New("cannot find module " + name)
}

func (h *fakeHost) Browserslist() any {
	return h.browserslist
}

func (h *fakeHost) GenCacheConfig(id string, fp cachekey.Fingerprint) (cachekey.CacheConfig, error) {
	if h.cacheErr != nil {
		return cachekey.CacheConfig{}, h.cacheErr
	}
	h.fingerprints = append(h.fingerprints, fp)
	digest, err := fp.Digest()
	if err != nil {
		return cachekey.CacheConfig{}, err
	}
	return cachekey.CacheConfig{
		CacheDirectory:  filepath.Join(h.root, "node_modules", ".cache", id),
		CacheIdentifier: digest,
	}, nil
}

type fakeBundler struct {
	loaderPaths []string
	rules       []pipeline.Rule
}

func (b *fakeBundler) PrependLoaderPath(dir string) {
	b.loaderPaths = append([]string{dir}, b.loaderPaths...)
}

func (b *fakeBundler) AddRule(r pipeline.Rule) error {
	b.rules = append(b.rules, r)
	return nil
}

func useNames(r pipeline.Rule) []string {
	names := make([]string, 0, len(r.Uses))
	for _, u := range r.Uses {
		names = append(names, u.Name)
	}
	return names
}

func TestApply(t *testing.T) {
	host := newFakeHost()
	bundler := &fakeBundler{}

	options := &config.Root{
		TranspileDependencies: config.Specifiers{specifier.Literal("lodash-es")},
	}
	env := config.Environment{Mode: config.ModeDevelopment}

	if err := pipeline.New(options, env).Apply(host, bundler); err != nil {
		t.Fatal(err)
	}

	if len(bundler.rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(bundler.rules))
	}
	rule := bundler.rules[0]
	if rule.Name != "js" {
		t.Fatalf("unexpected rule name %q", rule.Name)
	}
	for path, exp := range map[string]bool{
		"src/main.js":     true,
		"src/util.mjs":    true,
		"src/view.jsx":    true,
		"src/App.vue":     false,
		"src/main.ts":     false,
		"src/main.js.map": false,
	} {
		if got := rule.Test.MatchString(path); got != exp {
			t.Errorf("test(%s): expected %v, got %v", path, exp, got)
		}
	}

	if diff := cmp.Diff([]string{"babel-loader"}, useNames(rule)); diff != "" {
		t.Fatalf("unexpected uses (-want, +got):\n%s", diff)
	}

	babel := rule.Uses[0]
	if babel.Loader != "/proj/node_modules/babel-loader/lib/index.js" {
		t.Fatalf("unexpected loader %q", babel.Loader)
	}
	if babel.Options["cacheDirectory"] != "/proj/node_modules/.cache/babel-loader" {
		t.Fatalf("unexpected cache directory %v", babel.Options["cacheDirectory"])
	}

	exp := cachekey.Build(cachekey.Inputs{
		CompilerVersion: "7.24.0",
		PresetVersion:   "5.0.8",
		LoaderVersion:   "8.3.0",
		Browserslist:    []any{"> 1%"},
	})
	if len(host.fingerprints) != 1 || !host.fingerprints[0].Equal(exp) {
		t.Fatalf("unexpected fingerprint %+v", host.fingerprints)
	}

	if len(bundler.loaderPaths) != 0 {
		t.Fatalf("expected no loader paths, got %v", bundler.loaderPaths)
	}

	for path, exp := range map[string]bool{
		"/proj/node_modules/lodash-es/index.js":              false,
		"/proj/node_modules/react/index.js":                  true,
		"/proj/src/App.vue.js":                               false,
		"/proj/src/main.js":                                  false,
		"/proj/node_modules/@vue/cli-service/lib/Service.js": true,
	} {
		// Twice: the second answer comes from the decision cache.
		for range 2 {
			if got := rule.Exclude(path); got != exp {
				t.Errorf("exclude(%s): expected %v, got %v", path, exp, got)
			}
		}
	}
}

func TestApplyParallel(t *testing.T) {
	cases := []struct {
		note    string
		mode    config.Mode
		setting parallel.Setting
		uses    []string
		options map[string]any
	}{
		{
			note:    "development ignores parallel",
			mode:    config.ModeDevelopment,
			setting: parallel.On(),
			uses:    []string{"babel-loader"},
		},
		{
			note:    "production without parallel",
			mode:    config.ModeProduction,
			setting: parallel.Off(),
			uses:    []string{"babel-loader"},
		},
		{
			note:    "production with default workers",
			mode:    config.ModeProduction,
			setting: parallel.On(),
			uses:    []string{"thread-loader", "babel-loader"},
		},
		{
			note:    "production with explicit workers",
			mode:    config.ModeProduction,
			setting: parallel.Workers(4),
			uses:    []string{"thread-loader", "babel-loader"},
			options: map[string]any{"workers": 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			bundler := &fakeBundler{}
			options := &config.Root{Parallel: tc.setting}
			if err := pipeline.New(options, config.Environment{Mode: tc.mode}).Apply(newFakeHost(), bundler); err != nil {
				t.Fatal(err)
			}

			rule := bundler.rules[0]
			if diff := cmp.Diff(tc.uses, useNames(rule)); diff != "" {
				t.Fatalf("unexpected uses (-want, +got):\n%s", diff)
			}
			if len(tc.uses) == 2 {
				if diff := cmp.Diff(tc.options, rule.Uses[0].Options); diff != "" {
					t.Fatalf("unexpected thread-loader options (-want, +got):\n%s", diff)
				}
			}
		})
	}
}

func TestApplyRegistersNothingOnError(t *testing.T) {
	cases := []struct {
		note    string
		options *config.Root
		host    func(*fakeHost)
		is      error
	}{
		{
			note:    "invalid specifier",
			options: &config.Root{TranspileDependencies: config.Specifiers{specifier.Literal("lodash-es"), nil}},
			is:      specifier.ErrInvalidSpecifier,
		},
		{
			note:    "invalid pattern",
			options: &config.Root{TranspileDependencies: config.Specifiers{specifier.Pattern("(")}},
		},
		{
			note:    "service not installed",
			options: &config.Root{},
			host:    func(h *fakeHost) { delete(h.modules, "@vue/cli-service") },
		},
		{
			note:    "compiler not installed",
			options: &config.Root{},
			host:    func(h *fakeHost) { delete(h.versions, "@babel/core") },
		},
		{
			note:    "cache config fails",
			options: &config.Root{LoaderPath: "loaders"},
			host:    func(h *fakeHost) { h.cacheErr = errors.New("unreadable") },
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			host := newFakeHost()
			if tc.host != nil {
				tc.host(host)
			}
			bundler := &fakeBundler{}

			err := pipeline.New(tc.options, config.Environment{}).Apply(host, bundler)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
			if len(bundler.rules) != 0 || len(bundler.loaderPaths) != 0 {
				t.Fatalf("expected nothing registered, got %v %v", bundler.rules, bundler.loaderPaths)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	host := newFakeHost()
	delete(host.modules, "@vue/cli-service")
	bundler := &fakeBundler{}

	options := &config.Root{
		ServiceDir: "/opt/service",
		LoaderPath: "plugins/node_modules",
	}
	env := config.Environment{HelperInjection: true, ModernBuild: true}
	if err := pipeline.New(options, env).Apply(host, bundler); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"/proj/plugins/node_modules"}, bundler.loaderPaths); diff != "" {
		t.Fatalf("unexpected loader paths (-want, +got):\n%s", diff)
	}

	exclude := bundler.rules[0].Exclude
	if !exclude("/opt/service/lib/Service.js") {
		t.Fatal("expected the service directory to be excluded")
	}
	if exclude("/proj/node_modules/@babel/runtime/helpers/esm/typeof.js") {
		t.Fatal("expected runtime helpers to be compiled")
	}

	if modern := host.fingerprints[0].Factors[cachekey.FactorModern]; modern != true {
		t.Fatalf("expected modern factor, got %v", modern)
	}
}

func TestPlanDecide(t *testing.T) {
	options := &config.Root{TranspileDependencies: config.Specifiers{specifier.Pattern(`vuetify[/\\]src`)}}
	plan, err := pipeline.New(options, config.Environment{}).Plan(newFakeHost())
	if err != nil {
		t.Fatal(err)
	}

	if plan.BuildID == "" {
		t.Fatal("expected a build id")
	}
	if plan.ServiceDir != "/proj/node_modules/@vue/cli-service/lib" {
		t.Fatalf("unexpected service dir %q", plan.ServiceDir)
	}

	d := plan.Decide(`C:\proj\node_modules\vuetify\src\index.js`)
	if d.Exclude || d.Rule != "transpile-dependency" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if again := plan.Decide(`C:\proj\node_modules\vuetify\src\index.js`); again != d {
		t.Fatalf("expected a stable decision, got %+v then %+v", d, again)
	}
}

func TestPlanRelativeServiceDir(t *testing.T) {
	options := &config.Root{ServiceDir: "node_modules/@vue/cli-service"}
	plan, err := pipeline.New(options, config.Environment{}).Plan(newFakeHost())
	if err != nil {
		t.Fatal(err)
	}

	if plan.ServiceDir != "/proj/node_modules/@vue/cli-service" {
		t.Fatalf("expected the service dir to resolve against the project root, got %q", plan.ServiceDir)
	}

	d := plan.Decide("/proj/node_modules/@vue/cli-service/lib/entry.js")
	if !d.Exclude || d.Rule != "service-internal" {
		t.Fatalf("unexpected decision %+v", d)
	}
}
