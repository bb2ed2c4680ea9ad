package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/config"
)

var (
	cfg  *config.Config
	docs = config.NewDocs()
)

var rootCmd = &cobra.Command{
	Use:   "matchkey",
	Short: "Record-linkage pipeline for business entities",
	Long:  "Standardizes tabular business-entity records against a canonical schema and assigns stable dedup keys via normalization, blocking, and rule-driven fuzzy matching.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
