// Package plugin decides which module files a bundler passes through the
// JavaScript compiler, and registers that decision as a bundler rule.
//
// Third-party code under node_modules is skipped by default. Packages listed in
// the transpileDependencies option are compiled anyway, as are component scripts
// and, when the compiler injects them, runtime helper imports. Files of the CLI
// service itself are never compiled.
//
// # Basic Usage
//
// Decode the options the host passes, capture the environment once, and apply the
// plugin to the bundler configuration:
//
//	import "github.com/EricRabil/vue-cli/pkg/plugin"
//
//	opts, err := plugin.DecodeOptions(map[string]any{
//	    "transpileDependencies": []any{"lodash-es", map[string]any{"pattern": `vuetify[/\\]src`}},
//	    "parallel":              4,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	host, err := plugin.OpenProject(".", plugin.EnvironmentFromOS().Mode)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := plugin.New(opts, plugin.EnvironmentFromOS()).Apply(host, bundler); err != nil {
//	    log.Fatal(err) // e.g. an invalid transpileDependencies entry
//	}
//
// bundler is any implementation of [Bundler]. The plugin registers a single rule
// named "js" matching .js, .mjs, .jsx and .mjsx files. Its loader chain is the
// compiler loader, preceded by the worker dispatch loader in production builds
// with the parallel option enabled.
//
// # Specifiers
//
// A specifier is a package name ([Literal]) or a regular expression source
// ([Pattern]). A name matches the package's directory below any node_modules
// directory, on either path separator:
//
//	plugin.Literal("@scope/pkg") // matches .../node_modules/@scope/pkg/...
//	plugin.Pattern(`^/srv/shared/`)
//
// # Cache keys
//
// The compiler cache is keyed by the compiler, preset and loader versions, the
// modern build flag, the project's browserslist, and the contents of
// babel.config.js and .browserslistrc. See [Fingerprint].
package plugin
