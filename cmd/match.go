package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/matchkey/internal/block"
	"github.com/sells-group/matchkey/internal/engine"
)

var (
	matchInput    string
	matchOutput   string
	matchMapping  []string
	matchColumns  []string
	matchBlocking string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run the matching pipeline on a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		mode, err := block.ParseMode(matchBlocking)
		if err != nil {
			return err
		}
		fieldMapping, err := parseFieldMapping(matchMapping)
		if err != nil {
			return err
		}

		p, closeStore, err := newPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		stats, err := p.Run(cmd.Context(), matchInput, matchOutput, engine.Options{
			FieldMapping:  fieldMapping,
			OutputColumns: matchColumns,
			Blocking:      mode,
		})
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchInput, "input", "", "input CSV path")
	matchCmd.Flags().StringVar(&matchOutput, "output", "", "output CSV path")
	matchCmd.Flags().StringSliceVar(&matchMapping, "mapping", nil, "field mapping source=CANONICAL (repeatable)")
	matchCmd.Flags().StringSliceVar(&matchColumns, "columns", nil, "output column whitelist")
	matchCmd.Flags().StringVar(&matchBlocking, "blocking", "composite", "blocking mode: composite|phone|name")
	matchCmd.MarkFlagRequired("input")
	matchCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(matchCmd)
}
