package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/syftmirror/internal/mirror"
	"github.com/openmined/syftmirror/internal/output"
	"github.com/openmined/syftmirror/internal/synclogic"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow both directories and print a plan whenever they diverge",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s and %s\n", cyan(cfg.LocalDir), cyan(cfg.RemoteDir))

			defer slog.Info("Bye!")
			return m.Watch(cmd.Context(), func(_ context.Context, ops *synclogic.ReconcileOperations) {
				if err := output.Write(out, cfg.Output, ops); err != nil {
					slog.Error("write plan", "error", err)
				}
			})
		},
	}
	cmd.Flags().Duration("interval", 0, "how often to look for changes (default 1s)")
	return cmd
}
