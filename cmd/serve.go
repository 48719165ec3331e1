package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/correction"
	"github.com/sells-group/content-fixer/internal/monitoring"
)

var servePort int

// workflowRunner is the part of the orchestrator the server triggers.
type workflowRunner interface {
	RunWorkflow(ctx context.Context, createLimit, processLimit int) (*correction.WorkflowResult, error)
}

// server exposes queue health and lets a scheduler trigger workflow runs.
type server struct {
	collector *monitoring.Collector
	registry  *prometheus.Registry
	runner    workflowRunner
	origins   []string

	// base outlives individual requests so triggered runs finish after the
	// response is written.
	base    context.Context
	running atomic.Bool
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/workflow", s.handleWorkflow)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		zap.L().Error("stats request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleWorkflow starts one workflow run in the background. Only one run is
// allowed at a time.
func (s *server) handleWorkflow(w http.ResponseWriter, _ *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "workflow already running"})
		return
	}

	go func() {
		defer s.running.Store(false)
		res, err := s.runner.RunWorkflow(s.base, 0, 0)
		if err != nil {
			zap.L().Error("triggered workflow failed", zap.Error(err))
			return
		}
		zap.L().Info("triggered workflow complete",
			zap.Duration("total", res.Total),
			zap.Bool("failures", res.HasFailures()),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, stats and Prometheus metrics, and run the alert checker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		env, err := initEnv(ctx, 0)
		if err != nil {
			return err
		}
		defer env.Close()

		collector := monitoring.NewCollector(env.Store, env.Limiter)
		reg := prometheus.NewRegistry()
		if err := reg.Register(monitoring.NewExporter(collector, 5*time.Second)); err != nil {
			return eris.Wrap(err, "register exporter")
		}

		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		go checker.Run(ctx)

		s := &server{
			collector: collector,
			registry:  reg,
			runner:    env.Orch,
			origins:   cfg.Server.AllowedOrigins,
			base:      ctx,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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
