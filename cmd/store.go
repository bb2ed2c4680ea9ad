package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the dedup key store",
}

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print counts and run metadata for the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		s, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		m, err := s.Load(cmd.Context())
		if err != nil {
			return err
		}

		hashes := 0
		identifiers := 0
		for _, hs := range m.KeyToHashes {
			hashes += len(hs)
		}
		for _, ids := range m.KeyToIdentifiers {
			identifiers += len(ids)
		}

		return printJSON(map[string]any{
			"driver":      cfg.Store.Driver,
			"dedup_keys":  len(m.KeyToHashes),
			"data_hashes": hashes,
			"identifiers": identifiers,
			"metadata":    m.Metadata,
		})
	},
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store if it does not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		s, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		m, err := s.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := s.Save(cmd.Context(), m); err != nil {
			return err
		}
		zap.L().Info("store initialized",
			zap.String("driver", cfg.Store.Driver),
			zap.Int("dedup_keys", len(m.KeyToHashes)),
		)
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeInitCmd)
	rootCmd.AddCommand(storeCmd)
}
