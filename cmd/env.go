package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matchkey/internal/block"
	"github.com/sells-group/matchkey/internal/config"
	"github.com/sells-group/matchkey/internal/dedup"
	"github.com/sells-group/matchkey/internal/engine"
	"github.com/sells-group/matchkey/internal/quality"
	"github.com/sells-group/matchkey/internal/rules"
	"github.com/sells-group/matchkey/internal/standardize"
)

// openStore builds the configured dedup store backend. The returned close
// func releases any underlying handle.
func openStore(ctx context.Context) (dedup.Store, func(), error) {
	switch cfg.Store.Driver {
	case "file":
		return dedup.NewFileStore(cfg.Store.Path), func() {}, nil
	case "sqlite":
		s, err := dedup.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open postgres pool")
		}
		s := dedup.NewPostgres(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	}
	return nil, nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// parsedDocs holds parsed configuration documents so the serve and batch
// surfaces do not re-parse per request. Raw bytes are mtime-cached in docs;
// the TTL here bounds staleness of the parsed form.
var parsedDocs = config.NewCache(30 * time.Second)

// loadRules parses the configured rules document.
func loadRules() ([]rules.Rule, error) {
	if v, ok := parsedDocs.Get("rules"); ok {
		return v.([]rules.Rule), nil
	}
	parsed, err := rules.Parse(docs.Load(cfg.Docs.Rules))
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		zap.L().Warn("no match rules configured, every record will mint or replay its own key",
			zap.String("path", cfg.Docs.Rules))
	}
	parsedDocs.Set("rules", parsed)
	return parsed, nil
}

// loadColumns parses the configured columns-metadata document, falling back
// to the built-in catalog when the document is absent or empty.
func loadColumns() (*standardize.Metadata, error) {
	if v, ok := parsedDocs.Get("columns"); ok {
		return v.(*standardize.Metadata), nil
	}
	meta, err := standardize.ParseMetadata(docs.Load(cfg.Docs.Columns))
	if err != nil {
		return nil, err
	}
	if len(meta.Order) == 0 {
		meta = standardize.DefaultMetadata()
	}
	parsedDocs.Set("columns", meta)
	return meta, nil
}

// loadRunOptions reads the settings document for the run defaults used by
// batch and serve match jobs. An absent document yields zero options.
func loadRunOptions() (engine.Options, error) {
	var s struct {
		Blocking      string   `json:"blocking"`
		OutputColumns []string `json:"output_columns"`
	}
	if err := json.Unmarshal(docs.Load(cfg.Docs.Settings), &s); err != nil {
		return engine.Options{}, eris.Wrap(err, "parse settings")
	}
	opts := engine.Options{OutputColumns: s.OutputColumns}
	if s.Blocking != "" {
		mode, err := block.ParseMode(s.Blocking)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Blocking = mode
	}
	return opts, nil
}

// newPipeline assembles a matching pipeline from the configuration.
func newPipeline(ctx context.Context) (*engine.Pipeline, func(), error) {
	store, closeStore, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	ruleSet, err := loadRules()
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	meta, err := quality.Load(ctx, cfg.Quality.MetadataDB)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return &engine.Pipeline{Store: store, Rules: ruleSet, Quality: meta}, closeStore, nil
}

// parseFieldMapping parses repeated "source=CANONICAL" pairs.
func parseFieldMapping(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	mapping := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		src, canonical, ok := strings.Cut(pair, "=")
		if !ok || src == "" || canonical == "" {
			return nil, eris.Errorf("invalid field mapping %q, want source=CANONICAL", pair)
		}
		mapping[src] = canonical
	}
	return mapping, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
