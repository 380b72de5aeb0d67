package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ulogscraper-go/domain/vehicle"
)

var jobsCommand = &cobra.Command{
	Use:   "jobs",
	Short: "Print the vehicle jobs parsed from a config file",
	Long:  "Parses the vehicle config file and prints the jobs a batch run would process. Nothing is contacted.",
	Args:  cobra.NoArgs,
	RunE:  runJobsCmd,
}

var jobsConfigPath string

func init() {
	jobsCommand.Flags().StringVarP(&jobsConfigPath, "config", "c", vehicle.DefaultConfigFile, "Vehicle config file")
	rootCmd.AddCommand(jobsCommand)
}

func runJobsCmd(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	jobs, err := vehicle.ParseFile(jobsConfigPath, logger)
	if err != nil {
		return err
	}
	return printJobs(cmd.OutOrStdout(), jobs)
}

func printJobs(w io.Writer, jobs []vehicle.Job) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVEHICLE\tSTART\tEND")
	for i, j := range jobs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, j.Name, j.StartDate, j.EndDate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d vehicles\n", len(jobs))
	return err
}
