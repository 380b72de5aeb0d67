package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ulogscraper-go/domain/run"
)

var historyCommand = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the run ledger",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCmd,
}

var historyLimit int

func init() {
	historyCommand.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCommand)
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), shutdownTimeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, db, err := openRepository(ctx, s, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close(ctx)
	}

	records, err := repo.FindRecent(ctx, historyLimit)
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), records)
}

func printHistory(w io.Writer, records []*run.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tSTARTED\tDURATION\tVEHICLES\tFILES\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			r.ID,
			r.Mode,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration().Round(time.Second),
			r.CompletedVehicles(), len(r.Vehicles),
			len(r.Files),
			r.Error)
	}
	return tw.Flush()
}
