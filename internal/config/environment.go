package config

import "os"

// Environment variables consulted once per build.
const (
	EnvMode            = "NODE_ENV"
	EnvHelperInjection = "VUE_CLI_TRANSPILE_BABEL_RUNTIME"
	EnvModernBuild     = "VUE_CLI_MODERN_BUILD"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeTest        Mode = "test"
)

// Environment is the process-wide build state, captured once and passed around
// explicitly.
type Environment struct {
	Mode Mode

	// HelperInjection is set when the compiler preset injects imports of the
	// runtime helper package.
	HelperInjection bool

	// ModernBuild is set while building the modern bundle of a dual build.
	ModernBuild bool
}

func (e Environment) Production() bool {
	return e.Mode == ModeProduction
}

// LookupEnvironment reads the environment through lookup. Flags are set by any
// non-empty value.
func LookupEnvironment(lookup func(string) (string, bool)) Environment {
	flag := func(key string) bool {
		v, ok := lookup(key)
		return ok && v != ""
	}
	mode, _ := lookup(EnvMode)
	return Environment{
		Mode:            Mode(mode),
		HelperInjection: flag(EnvHelperInjection),
		ModernBuild:     flag(EnvModernBuild),
	}
}

func EnvironmentFromOS() Environment {
	return LookupEnvironment(os.LookupEnv)
}
