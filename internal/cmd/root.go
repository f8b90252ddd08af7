// Package cmd implements transpilectl, a command line tool that shows how the
// transpile policy classifies the files of a project.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/EricRabil/vue-cli/internal/config"
	"github.com/EricRabil/vue-cli/internal/logging"
	"github.com/EricRabil/vue-cli/internal/pipeline"
	"github.com/EricRabil/vue-cli/internal/project"
)

var version = "dev"

type modeFlag int

const (
	modeDevelopment modeFlag = iota
	modeProduction
	modeTest
)

var modeIDs = map[modeFlag][]string{
	modeDevelopment: {string(config.ModeDevelopment)},
	modeProduction:  {string(config.ModeProduction)},
	modeTest:        {string(config.ModeTest)},
}

var logLevelIDs = map[logging.Level][]string{
	logging.Error: {"error"},
	logging.Warn:  {"warn"},
	logging.Info:  {"info"},
	logging.Debug: {"debug"},
}

type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
)

var outputFormatIDs = map[outputFormat][]string{
	formatTable: {"table"},
	formatJSON:  {"json"},
}

var logFormatIDs = map[outputFormat][]string{
	formatTable: {"text"},
	formatJSON:  {"json"},
}

// commonParams are the flags shared by every command that evaluates a project.
type commonParams struct {
	configFiles []string
	patchFile   string
	projectDir  string
	mode        modeFlag
	logLevel    logging.Level
	logFormat   outputFormat
}

func (p *commonParams) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&p.configFiles, "config", "c", nil, "configuration files or directories, merged in order (repeatable)")
	fs.StringVar(&p.patchFile, "patch", "", "JSON patch (RFC 6902) applied to the merged configuration")
	fs.StringVarP(&p.projectDir, "project-dir", "C", ".", "project directory")
	fs.Var(enumflag.New(&p.mode, "mode", modeIDs, enumflag.EnumCaseInsensitive), "mode",
		"build mode: development, production or test (default: $NODE_ENV)")
	p.logLevel = logging.Warn
	fs.Var(enumflag.New(&p.logLevel, "level", logLevelIDs, enumflag.EnumCaseInsensitive), "log-level",
		"log level: error, warn, info or debug")
	fs.Var(enumflag.New(&p.logFormat, "format", logFormatIDs, enumflag.EnumCaseInsensitive), "log-format",
		"log format: text or json")
}

func (p *commonParams) logger(cmd *cobra.Command) *logging.Logger {
	format := "text"
	if p.logFormat == formatJSON {
		format = "json"
	}
	return logging.NewLogger(logging.Config{Level: p.logLevel, Format: format, Output: cmd.ErrOrStderr()})
}

func (p *commonParams) environment(cmd *cobra.Command) config.Environment {
	env := config.EnvironmentFromOS()
	if cmd.Flags().Changed("mode") || env.Mode == "" {
		env.Mode = config.Mode(modeIDs[p.mode][0])
	}
	return env
}

func (p *commonParams) options() (*config.Root, error) {
	var patch []byte
	if p.patchFile != "" {
		var err error
		patch, err = os.ReadFile(p.patchFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read patch file: %w", err)
		}
	}
	return config.Load(p.configFiles, patch)
}

// session is a planned build for the project named on the command line.
type session struct {
	project *project.Project
	env     config.Environment
	plan    *pipeline.Plan
	log     *logging.Logger
}

func (p *commonParams) session(cmd *cobra.Command) (*session, error) {
	log := p.logger(cmd)

	opts, err := p.options()
	if err != nil {
		return nil, err
	}

	env := p.environment(cmd)
	proj, err := project.Open(p.projectDir, env.Mode)
	if err != nil {
		return nil, err
	}

	plan, err := pipeline.New(opts, env).WithLogger(log).Plan(proj)
	if err != nil {
		return nil, err
	}

	log.Debugf("planned build %s for %s in %s mode", plan.BuildID, proj.Root(), env.Mode)
	return &session{project: proj, env: env, plan: plan, log: log}, nil
}

// abs resolves a path given on the command line against the project directory.
func (s *session) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return s.project.Resolve(path)
}

// New returns the transpilectl root command.
func New() *cobra.Command {
	var params commonParams

	root := &cobra.Command{
		Use:          "transpilectl",
		Short:        "Inspect which project files are passed through the compiler",
		Version:      version,
		SilenceUsage: true,
	}
	params.register(root.PersistentFlags())

	root.AddCommand(
		newClassifyCommand(&params),
		newConfigCommand(&params),
		newFingerprintCommand(&params),
		newScanCommand(&params),
		newSchemaCommand(),
	)
	return root
}
