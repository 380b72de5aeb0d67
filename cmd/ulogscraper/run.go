package main

import (
	"context"

	"github.com/spf13/cobra"

	"ulogscraper-go/application/session"
	"ulogscraper-go/domain/credential"
	"ulogscraper-go/domain/run"
	"ulogscraper-go/domain/vehicle"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Log in and walk one vehicle down to its log download",
	Long: `Logs in, searches the vehicles list for vehicle_query, opens the vehicle
whose link contains vehicle_match and follows it to the download of the
flight whose row contains flight_match.

A navigation step that cannot be found ends the walk without failing the run.`,
	Args: cobra.NoArgs,
	RunE: runSingleCmd,
}

var (
	runQuery  string
	runMatch  string
	runFlight string
)

func init() {
	runCommand.Flags().StringVar(&runQuery, "query", "", "Text typed into the vehicles search box (overrides vehicle_query)")
	runCommand.Flags().StringVar(&runMatch, "vehicle", "", "Text the vehicle link must contain (overrides vehicle_match)")
	runCommand.Flags().StringVar(&runFlight, "flight", "", "Text the flight row must contain (overrides flight_match)")

	_ = v.BindPFlag("vehicle_query", runCommand.Flags().Lookup("query"))
	_ = v.BindPFlag("vehicle_match", runCommand.Flags().Lookup("vehicle"))
	_ = v.BindPFlag("flight_match", runCommand.Flags().Lookup("flight"))

	rootCmd.AddCommand(runCommand)
}

func runSingleCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), run.ModeSingle, func(ctx context.Context, a *app, creds credential.Credentials) error {
		target := session.Target{
			Query:  a.settings.VehicleQuery,
			Match:  a.settings.VehicleMatch,
			Flight: a.settings.FlightMatch,
		}

		a.auth.AfterLogin = func(ctx context.Context) error {
			_, err := a.coord.Navigate(ctx, vehicle.Job{Name: target.Match}, target)
			return err
		}
		return a.coord.Login(ctx, creds)
	})
}
