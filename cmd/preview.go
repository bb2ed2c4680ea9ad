package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/matchkey/internal/standardize"
)

var (
	previewInput string
	previewRows  int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print a file's headers and first rows as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := standardize.Preview(previewInput, previewRows)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewInput, "input", "", "input CSV or XLSX path")
	previewCmd.Flags().IntVar(&previewRows, "rows", 10, "maximum rows to preview")
	previewCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(previewCmd)
}
