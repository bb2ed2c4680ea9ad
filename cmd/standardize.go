package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/matchkey/internal/standardize"
)

var (
	standardizeInput  string
	standardizeOutDir string
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Map a file's headers to the canonical schema and emit the standardized CSV plus analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := loadColumns()
		if err != nil {
			return err
		}

		outDir := standardizeOutDir
		if outDir == "" {
			outDir = cfg.Dirs.Process
		}

		p := &standardize.Processor{Meta: meta}
		result, err := p.ProcessFile(standardizeInput, outDir)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	standardizeCmd.Flags().StringVar(&standardizeInput, "input", "", "input CSV or XLSX path")
	standardizeCmd.Flags().StringVar(&standardizeOutDir, "output-dir", "", "output directory (default from config)")
	standardizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(standardizeCmd)
}
