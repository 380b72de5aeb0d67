package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ulogscraper-go/domain/credential"
	"ulogscraper-go/domain/run"
)

var fetchCommand = &cobra.Command{
	Use:   "fetch",
	Short: "Log in and download every log linked from the logs page",
	Long: `Logs in with the browser, opens the logs page and downloads each linked
.log file over HTTP with the browser's cookies into <log_dir>/downloaded.
Only hosts listed in fetch.allowed_hosts are contacted.`,
	Args: cobra.NoArgs,
	RunE: runFetchCmd,
}

func init() {
	rootCmd.AddCommand(fetchCommand)
}

func runFetchCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), run.ModeFetch, func(ctx context.Context, a *app, creds credential.Credentials) error {
		if err := a.coord.Login(ctx, creds); err != nil {
			return err
		}

		files, err := a.coord.FetchLogs(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, f := range files {
			fmt.Fprintf(out, "%s\t%d bytes\n", f.Path, f.SizeBytes)
		}
		fmt.Fprintf(out, "Saved %d log files to %s\n", len(files), a.retriever.Dir())
		return nil
	})
}
