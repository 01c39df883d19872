package main

import (
	"github.com/openmined/syftmirror/internal/mirror"
	"github.com/openmined/syftmirror/internal/output"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDiffCmd())
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Scan both directories once and print what a sync would do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := prepare(cmd)
			if err != nil {
				return err
			}

			m, err := mirror.New(cfg)
			if err != nil {
				return err
			}

			ops, err := m.Diff(cmd.Context())
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), cfg.Output, ops)
		},
	}
}
