package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/matchkey/internal/engine"
	"github.com/sells-group/matchkey/internal/standardize"
)

var batchSkipMatch bool

type batchFileResult struct {
	Input       string              `json:"input"`
	Standardize *standardize.Result `json:"standardize"`
	Match       *engine.RunStats    `json:"match,omitempty"`
	Error       string              `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Standardize every file in the incoming directory, then run matching per file",
	Long:  "Standardization runs concurrently. Matching runs serially because the dedup store is shared mutable state and its writers must be serialized.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		entries, err := os.ReadDir(cfg.Dirs.Incoming)
		if err != nil {
			return err
		}
		var inputs []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".csv" || ext == ".xlsx" {
				inputs = append(inputs, filepath.Join(cfg.Dirs.Incoming, e.Name()))
			}
		}
		if len(inputs) == 0 {
			zap.L().Info("no files to process", zap.String("dir", cfg.Dirs.Incoming))
			return printJSON([]batchFileResult{})
		}

		meta, err := loadColumns()
		if err != nil {
			return err
		}

		results := make([]batchFileResult, len(inputs))
		var mu sync.Mutex

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(cfg.Batch.MaxConcurrentFiles)
		for i, input := range inputs {
			i, input := i, input
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				p := &standardize.Processor{Meta: meta}
				res, err := p.ProcessFile(input, cfg.Dirs.Process)

				mu.Lock()
				defer mu.Unlock()
				results[i] = batchFileResult{Input: input, Standardize: res}
				if err != nil {
					results[i].Error = err.Error()
					zap.L().Error("standardize failed", zap.String("input", input), zap.Error(err))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if !batchSkipMatch {
			p, closeStore, err := newPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			opts, err := loadRunOptions()
			if err != nil {
				return err
			}

			for i := range results {
				r := &results[i]
				if r.Standardize == nil || r.Error != "" {
					continue
				}
				input := filepath.Join(cfg.Dirs.Process, r.Standardize.ProcessedFilename)
				output := filepath.Join(cfg.Dirs.Output,
					strings.TrimSuffix(r.Standardize.ProcessedFilename, ".csv")+"_matched.csv")
				stats, err := p.Run(cmd.Context(), input, output, opts)
				if err != nil {
					r.Error = err.Error()
					zap.L().Error("matching failed", zap.String("input", input), zap.Error(err))
					continue
				}
				r.Match = stats
			}
		}

		return printJSON(results)
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchSkipMatch, "skip-match", false, "standardize only, skip the matching pass")
	rootCmd.AddCommand(batchCmd)
}
