package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createLimit int

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Scan content and queue a correction for each defect",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.CreateMissing(ctx, createLimit)
		if err != nil {
			return err
		}

		zap.L().Info("create complete",
			zap.Int("scanned", res.Scanned),
			zap.Int("created", res.Created),
			zap.Int("skipped_existing", res.SkippedExisting),
			zap.Int("invalid", res.Invalid),
		)
		return printJSON(res)
	},
}

func init() {
	createCmd.Flags().IntVar(&createLimit, "limit", 0, "max content records to scan (default from config)")
	rootCmd.AddCommand(createCmd)
}
