package main

import (
	"github.com/spf13/cobra"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Release stuck corrections and remove duplicates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.Maintain(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(maintainCmd)
}
