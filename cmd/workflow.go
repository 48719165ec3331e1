package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	workflowCreateLimit  int
	workflowProcessLimit int
	workflowBatchSize    int
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run create, process and maintain in sequence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, workflowBatchSize)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.RunWorkflow(ctx, workflowCreateLimit, workflowProcessLimit)
		if res != nil {
			zap.L().Info("workflow finished", zap.Duration("total", res.Total))
			if perr := printJSON(res); perr != nil && err == nil {
				err = perr
			}
		}
		if err != nil {
			return err
		}
		if res.HasFailures() {
			return errFailures
		}
		return nil
	},
}

func init() {
	workflowCmd.Flags().IntVar(&workflowCreateLimit, "create-limit", 0, "max content records to scan (default from config)")
	workflowCmd.Flags().IntVar(&workflowProcessLimit, "process-limit", 0, "max corrections to claim (default from config)")
	workflowCmd.Flags().IntVar(&workflowBatchSize, "batch-size", 0, "corrections processed concurrently (default from config)")
	rootCmd.AddCommand(workflowCmd)
}
