package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.yaml>",
		Short: "Build and run a declarative pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], root.verbose)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p.On("task_end", func(event string, eventArgs ...interface{}) {
				fmt.Fprintf(out, "task_end %v\n", firstArg(eventArgs))
			})
			p.On("action_end", func(event string, eventArgs ...interface{}) {
				fmt.Fprintf(out, "action_end %v\n", firstArg(eventArgs))
			})

			return p.Run(cmd.Context())
		},
	}

	return cmd
}

func firstArg(args []interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
