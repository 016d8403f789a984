package main

import (
	"github.com/spf13/cobra"
)

func newDryRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dry-run <file.yaml>",
		Short: "Print the wave plan and every task's action descriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], false)
			if err != nil {
				return err
			}
			return p.DryRun(cmd.OutOrStdout())
		},
	}

	return cmd
}
