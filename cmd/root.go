package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/config"
)

var (
	cfg    *config.Config
	dryRun bool
)

// errFailures makes the process exit non-zero when a run left corrections
// failed. The details are already in the printed result.
var errFailures = errors.New("one or more corrections failed")

var rootCmd = &cobra.Command{
	Use:   "content-fixer",
	Short: "Detects and repairs defective vehicle article content",
	Long: "Scans article content for implausible tire pressures, placeholder titles and reused testimonial names, " +
		"queues one correction per defect and repairs them through a rate-limited LLM provider.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
