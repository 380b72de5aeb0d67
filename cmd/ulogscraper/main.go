// Package main is the entry point for the ulogscraper command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ulogscraper-go/infrastructure/settings"
)

var rootCmd = &cobra.Command{
	Use:   "ulogscraper",
	Short: "Download flight logs from Auterion Suite",
	Long: `ulogscraper signs in to Auterion Suite with a browser, walks the vehicle
pages down to each flight's log download and can fetch the log files linked
from the logs page over HTTP with the session cookies.

Credentials come from --username/--password or AUTERION_USERNAME and
AUTERION_PASSWORD, which may be kept in a .env file.`,
	SilenceUsage: true,
}

var (
	settingsFile string
	username     string
	password     string

	// v holds defaults, ULOG_* environment values and the bound flags.
	v = settings.New()
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "Path to a settings YAML file (default ./"+settings.DefaultFile+" if present)")
	flags.StringVarP(&username, "username", "u", "", "Auterion username (defaults to AUTERION_USERNAME)")
	flags.StringVarP(&password, "password", "p", "", "Auterion password (defaults to AUTERION_PASSWORD)")
	flags.Bool("headless", false, "Run the browser without a window")
	flags.Bool("keep-open", false, "Leave the browser open when the run ends")
	flags.String("log-dir", "logs", "Directory for the run log, screenshots and downloads")

	_ = v.BindPFlag("headless", flags.Lookup("headless"))
	_ = v.BindPFlag("keep_browser_open", flags.Lookup("keep-open"))
	_ = v.BindPFlag("log_dir", flags.Lookup("log-dir"))
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
