package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/monitoring"
	"github.com/geodata-br/censomap/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset coverage and sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, 24)
		if err != nil {
			return eris.Wrap(err, "status: collect")
		}

		fmt.Printf("Municipalities: %d (geometry %d, counts %d, coverage %.1f%%)\n",
			snap.Municipalities, snap.WithGeometry, snap.WithCounts, snap.CoverageRatio*100)
		fmt.Printf("Observations:   %d (%d suppressed)\n", snap.Observations, snap.Suppressed)
		fmt.Println()

		entries, err := st.ListSyncs(ctx, store.SyncFilter{})
		if err != nil {
			return eris.Wrap(err, "status: list syncs")
		}
		if len(entries) == 0 {
			zap.L().Info("no sync entries found, run 'censomap fetch' to load data")
			return nil
		}

		formatSyncEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatSyncEntries writes a tabular representation of sync entries to w.
func formatSyncEntries(out io.Writer, entries []store.SyncEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSTATUS\tSYNCED\tROWS\tETAG\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t----\t----\t-----")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Dataset,
			e.Status,
			e.SyncedAt.Format("2006-01-02 15:04"),
			e.Rows,
			truncate(e.ETag, 20),
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
