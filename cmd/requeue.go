package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	requeueAllFailed bool
	requeueLimit     int
)

var requeueCmd = &cobra.Command{
	Use:   "requeue [correction-id...]",
	Short: "Move failed corrections back to pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !requeueAllFailed && len(args) == 0 {
			return eris.New("requeue: pass correction ids or --all-failed")
		}
		if requeueAllFailed && len(args) > 0 {
			return eris.New("requeue: correction ids and --all-failed are exclusive")
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.Requeue(ctx, args, requeueAllFailed, requeueLimit)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	requeueCmd.Flags().BoolVar(&requeueAllFailed, "all-failed", false, "requeue every failed correction of the configured types")
	requeueCmd.Flags().IntVar(&requeueLimit, "limit", 0, "max failed corrections to requeue with --all-failed (0 = no limit)")
	rootCmd.AddCommand(requeueCmd)
}
