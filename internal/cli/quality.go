package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"reportbot/internal/domain"
	"reportbot/internal/report"
	"reportbot/internal/store"
)

var (
	qualityMonth   string
	qualityConfirm bool
	qualityOut     string
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Inspect and maintain the data quality baseline",
}

var qualityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current baseline and its history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := openQualityStore()
		if err != nil {
			return err
		}
		defer qs.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		if qualityMonth != "" {
			rec, err := qs.Get(ctx, qualityMonth)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintf(w, "no baseline recorded for %s\n", qualityMonth)
				return nil
			}
			fmt.Fprintf(w, "baseline %s: %s (recorded %s)\n\n", rec.MonthKey, report.FormatInt(rec.MetricValue), rec.RecordedAt.Local().Format(time.DateTime))
		}

		history, err := qs.History(ctx, qualityMonth)
		if err != nil {
			return err
		}
		printHistory(cmd, history)
		return nil
	},
}

var qualityClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every baseline and history record",
	Long: `Delete every baseline and history record. The next run of each month
passes the quality check unconditionally. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !qualityConfirm {
			return errors.New("refusing to clear the quality baseline without --yes")
		}
		qs, err := openQualityStore()
		if err != nil {
			return err
		}
		defer qs.Close()

		n, err := qs.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d baseline record(s) from %s\n", n, qs.Path())
		return nil
	},
}

var qualityExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Archive the baseline history to a Parquet file",
	Long: `Archive the baseline history to a Parquet file. An existing archive is
merged with the current history; duplicate entries are written once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if qualityOut == "" {
			return errors.New("--out is required")
		}
		qs, err := openQualityStore()
		if err != nil {
			return err
		}
		defer qs.Close()

		n, err := store.ExportHistoryParquet(cmd.Context(), qs, qualityOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d record(s) to %s\n", n, qualityOut)
		return nil
	},
}

func openQualityStore() (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.QualityDBPath())
}

func printHistory(cmd *cobra.Command, history []domain.QualityRecord) {
	w := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintln(w, "no history")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MONTH\tNMV\tRECORDED AT\t")
	for _, r := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.MonthKey, report.FormatInt(r.MetricValue), r.RecordedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func init() {
	rootCmd.AddCommand(qualityCmd)
	qualityCmd.AddCommand(qualityShowCmd, qualityClearCmd, qualityExportCmd)
	qualityShowCmd.Flags().StringVar(&qualityMonth, "month", "", "Month key as YYYY-MM (default all months)")
	qualityClearCmd.Flags().BoolVar(&qualityConfirm, "yes", false, "Confirm deleting every record")
	qualityExportCmd.Flags().StringVar(&qualityOut, "out", "", "Parquet file to write")
}
