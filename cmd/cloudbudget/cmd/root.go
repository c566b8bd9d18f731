// Package cmd provides the CLI commands for cloudbudget.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cloudbudget/internal/config"
	"cloudbudget/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cloudbudget",
	Short: "Backend for the cloud-infrastructure cost management game",
	Long: `cloudbudget runs the backend of a browser game where players build
cloud infrastructure and try to survive the monthly bill.

Examples:
  cloudbudget serve
  cloudbudget content load-rates ./content/costs.hcl
  cloudbudget content load-scenario ./content/startup.hcl`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cloudbudget version 0.1.0")
	},
}
