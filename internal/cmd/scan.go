package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	ocp_fs "github.com/EricRabil/vue-cli/internal/fs"
	"github.com/EricRabil/vue-cli/internal/inclusion"
	"github.com/EricRabil/vue-cli/internal/metrics"
	"github.com/EricRabil/vue-cli/internal/pipeline"
	"github.com/EricRabil/vue-cli/internal/pool"
	"github.com/EricRabil/vue-cli/internal/progress"
)

type scanParams struct {
	included   []string
	excluded   []string
	list       bool
	progress   bool
	metricsOut string
	format     outputFormat
}

type scanSummary struct {
	Files    int              `json:"files"`
	Compiled int              `json:"compiled"`
	Skipped  int              `json:"skipped"`
	Rules    map[string]int   `json:"rules"`
	Workers  int              `json:"workers"`
	Results  []classification `json:"results,omitempty"`
}

var errNoFilesLeft = errors.New("no files left after --include/--exclude filters")

func newScanCommand(params *commonParams) *cobra.Command {
	var sp scanParams

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Classify every script file in the project",
		Long: `Walk the project directory and classify every file the rule applies to.

Files are classified on a worker pool sized like the compiler workers of a
build in the selected mode. Use --include and --exclude to restrict the walk
with globs relative to the project directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := params.session(cmd)
			if err != nil {
				return err
			}

			summary, err := scan(cmd.Context(), s, sp, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if sp.metricsOut != "" {
				if err := prometheus.WriteToTextfile(sp.metricsOut, prometheus.DefaultGatherer); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}

			if sp.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			if sp.list {
				if err := writeClassifications(cmd.OutOrStdout(), summary.Results); err != nil {
					return err
				}
			}
			return writeSummary(cmd.OutOrStdout(), summary, s.plan.Predicate.Rules())
		},
	}

	fs := cmd.Flags()
	fs.StringSliceVar(&sp.included, "include", nil, "only scan files matching these globs")
	fs.StringSliceVar(&sp.excluded, "exclude", nil, "skip files matching these globs")
	fs.BoolVar(&sp.list, "list", false, "list every classified file")
	fs.BoolVar(&sp.progress, "progress", false, "show a progress bar on stderr")
	fs.StringVar(&sp.metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the scan")
	fs.Var(enumflag.New(&sp.format, "format", outputFormatIDs, enumflag.EnumCaseInsensitive), "format",
		"output format: table or json")
	return cmd
}

func scan(ctx context.Context, s *session, sp scanParams, stderr io.Writer) (*scanSummary, error) {
	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	fsys, err := ocp_fs.NewFilterFS(os.DirFS(s.project.Root()), sp.included, sp.excluded)
	if err != nil {
		return nil, err
	}
	if len(sp.included) > 0 || len(sp.excluded) > 0 {
		ok, err := ocp_fs.ContainsFiles(fsys, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", s.project.Root(), err)
		}
		if !ok {
			return nil, errNoFilesLeft
		}
	}

	names, err := ocp_fs.Candidates(fsys, pipeline.ScriptTest)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.project.Root(), err)
	}

	var bar *progress.Bar
	if sp.progress {
		bar = progress.New(stderr, len(names), "classifying")
	}

	p := pool.FromDecision(s.plan.Parallel)
	s.log.Debugf("classifying %d files on %d workers", len(names), p.Workers())

	results, err := pool.Run(ctx, p, names, func(_ context.Context, name string) (classification, error) {
		defer bar.Increment()
		d := s.plan.Decide(filepath.Join(s.project.Root(), filepath.FromSlash(name)))
		return classification{Path: name, Decision: d}, nil
	})
	if err != nil {
		return nil, err
	}
	if err := bar.Finish(); err != nil {
		return nil, err
	}

	summary := &scanSummary{Files: len(results), Rules: map[string]int{}, Workers: p.Workers()}
	for _, r := range results {
		if r.Exclude {
			summary.Skipped++
		} else {
			summary.Compiled++
		}
		summary.Rules[r.Rule]++
	}
	if sp.list || sp.format == formatJSON {
		summary.Results = results
	}
	return summary, nil
}

// writeSummary lists the rules that fired, in evaluation order.
func writeSummary(w io.Writer, summary *scanSummary, rules []inclusion.Rule) error {
	table := tablewriter.NewWriter(w)
	table.Header("RULE", "OUTCOME", "FILES")
	for _, r := range rules {
		n, ok := summary.Rules[r.Name]
		if !ok {
			continue
		}
		if err := table.Append([]string{r.Name, metrics.Outcome(r.Exclude), strconv.Itoa(n)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d files: %d compiled, %d skipped (%d workers)\n",
		summary.Files, summary.Compiled, summary.Skipped, summary.Workers)
	return err
}
