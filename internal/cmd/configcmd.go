package cmd

import (
	"github.com/spf13/cobra"
)

func newConfigCommand(params *commonParams) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration after merging and patching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := params.options()
			if err != nil {
				return err
			}
			bs, err := opts.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(bs)
			return err
		},
	}
}
