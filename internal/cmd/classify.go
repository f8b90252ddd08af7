package cmd

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/EricRabil/vue-cli/internal/inclusion"
)

type classification struct {
	Path string `json:"path"`
	inclusion.Decision
}

func newClassifyCommand(params *commonParams) *cobra.Command {
	var format outputFormat

	cmd := &cobra.Command{
		Use:   "classify PATH...",
		Short: "Show whether each path is compiled, and which rule decided",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := params.session(cmd)
			if err != nil {
				return err
			}

			out := make([]classification, 0, len(args))
			for _, arg := range args {
				out = append(out, classification{Path: arg, Decision: s.plan.Decide(s.abs(arg))})
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return writeClassifications(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().Var(enumflag.New(&format, "format", outputFormatIDs, enumflag.EnumCaseInsensitive), "format",
		"output format: table or json")
	return cmd
}

func writeClassifications(w io.Writer, cs []classification) error {
	table := tablewriter.NewWriter(w)
	table.Header("PATH", "COMPILE", "RULE")
	for _, c := range cs {
		if err := table.Append([]string{c.Path, strconv.FormatBool(!c.Exclude), c.Rule}); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
