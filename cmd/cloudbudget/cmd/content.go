package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloudbudget/content"
	"cloudbudget/store"
)

// contentCmd groups the content-loading subcommands.
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Load authored game content into the store",
}

var loadRatesCmd = &cobra.Command{
	Use:   "load-rates <file>",
	Short: "Load a rate table from a JSON or HCL file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		costs, err := content.LoadRatesFile(args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.PutRates(cmd.Context(), costs); err != nil {
			return err
		}
		fmt.Printf("Loaded %d rate entries from %s\n", len(costs), args[0])
		return nil
	},
}

var loadScenarioCmd = &cobra.Command{
	Use:   "load-scenario <file>...",
	Short: "Load one or more scenarios from JSON or HCL files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, path := range args {
			sc, err := content.LoadScenarioFile(path)
			if err != nil {
				return err
			}
			if err := st.PutScenario(cmd.Context(), sc); err != nil {
				return err
			}
			fmt.Printf("Loaded scenario %q from %s\n", sc.ScenarioID, path)
		}
		return nil
	},
}

func init() {
	contentCmd.AddCommand(loadRatesCmd)
	contentCmd.AddCommand(loadScenarioCmd)
}
