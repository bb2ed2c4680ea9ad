package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/matchkey/internal/standardize"
)

var automapInput string

var automapCmd = &cobra.Command{
	Use:   "automap",
	Short: "Print the header-to-canonical mapping for a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := loadColumns()
		if err != nil {
			return err
		}
		table, err := standardize.ReadFile(automapInput)
		if err != nil {
			return err
		}
		return printJSON(standardize.AutoMap(table.Headers, meta))
	},
}

func init() {
	automapCmd.Flags().StringVar(&automapInput, "input", "", "input CSV or XLSX path")
	automapCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(automapCmd)
}
