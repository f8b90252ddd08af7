package cmd

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"
)

var errFingerprintChanged = errors.New("cache fingerprint changed")

func newFingerprintCommand(params *commonParams) *cobra.Command {
	var (
		format  outputFormat
		against string
	)

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Show the compiler cache fingerprint and cache configuration",
		Long: `Show the factors keyed into cached compiler output.

With --format json the canonical fingerprint is printed; store it and pass it to
--against later to see which factors changed. A changed fingerprint exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := params.session(cmd)
			if err != nil {
				return err
			}

			canonical, err := s.plan.Fingerprint.Canonical()
			if err != nil {
				return err
			}

			if against != "" {
				stored, err := os.ReadFile(against)
				if err != nil {
					return fmt.Errorf("failed to read stored fingerprint: %w", err)
				}
				old, current := normalize(string(stored)), normalize(string(canonical))
				if old == current {
					fmt.Fprintln(cmd.OutOrStdout(), "fingerprint unchanged")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), textdiff.Unified(against, "current", old, current))
				return errFingerprintChanged
			}

			if format == formatJSON {
				_, err := cmd.OutOrStdout().Write(canonical)
				return err
			}

			digest, err := s.plan.Fingerprint.Digest()
			if err != nil {
				return err
			}
			return writeFingerprint(cmd.OutOrStdout(), s, digest)
		},
	}

	cmd.Flags().Var(enumflag.New(&format, "format", outputFormatIDs, enumflag.EnumCaseInsensitive), "format",
		"output format: table or json")
	cmd.Flags().StringVar(&against, "against", "", "stored fingerprint to compare with")
	return cmd
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) + "\n"
}

func writeFingerprint(w io.Writer, s *session, digest string) error {
	fp := s.plan.Fingerprint

	table := tablewriter.NewWriter(w)
	table.Header("FACTOR", "VALUE")
	for _, k := range slices.Sorted(maps.Keys(fp.Factors)) {
		if err := table.Append([]string{k, fmt.Sprint(fp.Factors[k])}); err != nil {
			return err
		}
	}
	rows := [][]string{
		{"config files", strings.Join(fp.ConfigFiles, ", ")},
		{"digest", digest},
		{"cache directory", s.plan.Cache.CacheDirectory},
		{"cache identifier", s.plan.Cache.CacheIdentifier},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
