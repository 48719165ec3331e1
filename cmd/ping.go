package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the store and the enrichment provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		out := map[string]any{"store": cfg.Store.Driver, "provider": env.Client.ProviderName()}

		if err := env.Store.Ping(ctx); err != nil {
			return eris.Wrap(err, "ping store")
		}

		latency, err := env.Client.Ping(ctx)
		if err != nil {
			return eris.Wrap(err, "ping provider")
		}
		out["latency_ms"] = latency.Milliseconds()

		zap.L().Info("ping ok",
			zap.String("provider", env.Client.ProviderName()),
			zap.Duration("latency", latency),
		)
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
