package main

import (
	"github.com/spf13/cobra"
)

var (
	scanCategory string
	scanLimit    int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report defects without queuing corrections",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.Survey(ctx, scanCategory, scanLimit)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanCategory, "category", "", "only scan one vehicle category (sedan, pickup, suv, motorcycle)")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "max content records to scan (0 = all)")
	rootCmd.AddCommand(scanCmd)
}
