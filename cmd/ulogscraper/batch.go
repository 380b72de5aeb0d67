package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ulogscraper-go/domain/credential"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/domain/vehicle"
)

var batchCommand = &cobra.Command{
	Use:   "batch",
	Short: "Log in once and walk every vehicle of a config file",
	Long: `Reads vehicle jobs from the config file ("name: start - end" per line),
logs in and walks each vehicle in file order. A vehicle that fails is logged
and the batch moves on, so every job gets exactly one attempt.`,
	Args: cobra.NoArgs,
	RunE: runBatchCmd,
}

var batchConfigPath string

func init() {
	batchCommand.Flags().StringVarP(&batchConfigPath, "config", "c", vehicle.DefaultConfigFile, "Vehicle config file")
	rootCmd.AddCommand(batchCommand)
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), run.ModeBatch, func(ctx context.Context, a *app, creds credential.Credentials) error {
		jobs, err := vehicle.ParseFile(batchConfigPath, a.logger)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return fmt.Errorf("no vehicles found in %s", batchConfigPath)
		}
		a.logger.Info("Vehicle jobs loaded", "file", batchConfigPath, "count", len(jobs))

		if err := a.coord.Login(ctx, creds); err != nil {
			return err
		}

		completed := a.coord.ProcessAll(ctx, jobs)
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d vehicles, %d reached the download step\n", len(jobs), completed)
		return nil
	})
}
