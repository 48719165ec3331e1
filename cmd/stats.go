package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/monitoring"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show correction counts by type and status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := monitoring.NewCollector(env.Store, env.Limiter).Collect(ctx)
		if err != nil {
			return err
		}
		if statsJSON {
			return printJSON(snap)
		}
		return writeStatsTable(stdout, snap)
	},
}

func writeStatsTable(out io.Writer, snap *monitoring.MetricsSnapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tPENDING\tPROCESSING\tCOMPLETED\tFAILED\tTOTAL")
	for _, t := range model.AllCorrectionTypes() {
		byStatus := snap.Counts[t]
		total := 0
		for _, n := range byStatus {
			total += n
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", t,
			byStatus[model.StatusPending],
			byStatus[model.StatusProcessing],
			byStatus[model.StatusCompleted],
			byStatus[model.StatusFailed],
			total,
		)
	}
	fmt.Fprintf(w, "all\t%d\t%d\t%d\t%d\t%d\n",
		snap.Pending, snap.Processing, snap.Completed, snap.Failed,
		snap.Pending+snap.Processing+snap.Completed+snap.Failed)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nfailure rate: %.1f%%\n", snap.FailureRate*100)
	fmt.Fprintf(out, "self-check: %d/%d (%.1f%%)\n",
		snap.MandatoryCorrections, len(model.MandatoryCorrectionTypes())*snap.EligibleSubjects, snap.SelfCheckRatio*100)
	if snap.LimiterAvailable {
		fmt.Fprintln(out, "limiter: ready")
	} else {
		fmt.Fprintf(out, "limiter: next request in %.1fs\n", snap.SecondsUntilNextRequest)
	}
	return nil
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statsCmd)
}
