package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/content-fixer/internal/correction"
)

var (
	processLimit     int
	processBatchSize int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Enrich and apply pending corrections",
	Long: "Claims pending corrections, asks the configured provider for the repaired content and writes it back. " +
		"Exits non-zero when any correction failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, processBatchSize)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.ProcessPending(ctx, processLimit)
		if res != nil {
			if perr := printJSON(res); perr != nil && err == nil {
				err = perr
			}
		}
		if err != nil {
			return err
		}
		return processExit(res)
	},
}

func processExit(res *correction.ProcessResult) error {
	if res != nil && res.HasFailures() {
		return errFailures
	}
	return nil
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "max corrections to claim (default from config)")
	processCmd.Flags().IntVar(&processBatchSize, "batch-size", 0, "corrections processed concurrently (default from config)")
	rootCmd.AddCommand(processCmd)
}
