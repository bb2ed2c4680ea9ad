package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/matchkey/internal/engine"
	"github.com/sells-group/matchkey/internal/standardize"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for standardization and matching",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srvEnv, err := newServeEnv(ctx)
		if err != nil {
			return err
		}
		defer srvEnv.close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srvEnv.router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type serveEnv struct {
	meta     *standardize.Metadata
	pipeline *engine.Pipeline
	close    func()

	// The dedup store is shared mutable state, so match jobs run one
	// at a time.
	matchMu sync.Mutex
}

func newServeEnv(ctx context.Context) (*serveEnv, error) {
	meta, err := loadColumns()
	if err != nil {
		return nil, err
	}
	p, closeStore, err := newPipeline(ctx)
	if err != nil {
		return nil, err
	}
	return &serveEnv{meta: meta, pipeline: p, close: closeStore}, nil
}

// router wires the middleware stack and API routes.
func (e *serveEnv) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(rateLimit(rate.Limit(cfg.Server.RatePerSecond)))
	r.Use(maxBody(int64(cfg.Server.MaxUploadMiB) << 20))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/auto-map", e.handleAutoMap)
	r.Post("/api/preview", e.handlePreview)
	r.Post("/api/standardize", e.handleStandardize)
	r.Post("/api/match", e.handleMatch)
	return r
}

func rateLimit(limit rate.Limit) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, int(limit)+1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// saveUpload copies the multipart "file" part into a temp file and
// returns its path. Callers must remove the file when done.
func saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", eris.Wrap(err, "serve: read upload")
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext != ".csv" && ext != ".xlsx" {
		return "", eris.New("serve: unsupported file type " + ext)
	}

	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "serve: create temp file")
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "serve: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "serve: close temp file")
	}
	return tmp.Name(), nil
}

func (e *serveEnv) handleAutoMap(w http.ResponseWriter, r *http.Request) {
	path, err := saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer os.Remove(path)

	table, err := standardize.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, standardize.AutoMap(table.Headers, e.meta))
}

func (e *serveEnv) handlePreview(w http.ResponseWriter, r *http.Request) {
	path, err := saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer os.Remove(path)

	maxRows := 10
	if v := r.FormValue("rows"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxRows = n
		}
	}

	result, err := standardize.Preview(path, maxRows)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *serveEnv) handleStandardize(w http.ResponseWriter, r *http.Request) {
	path, err := saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer os.Remove(path)

	p := &standardize.Processor{Meta: e.meta}
	result, err := p.ProcessFile(path, cfg.Dirs.Process)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *serveEnv) handleMatch(w http.ResponseWriter, r *http.Request) {
	path, err := saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer os.Remove(path)

	opts, err := loadRunOptions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	output := filepath.Join(cfg.Dirs.Output,
		filepath.Base(path[:len(path)-len(filepath.Ext(path))])+"_matched.csv")

	e.matchMu.Lock()
	stats, err := e.pipeline.Run(r.Context(), path, output, opts)
	e.matchMu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"output": output,
		"stats":  stats,
	})
}
