package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/product-compare/internal/catalog"
	"github.com/sells-group/product-compare/internal/metrics"
	"github.com/sells-group/product-compare/internal/model"
	"github.com/sells-group/product-compare/internal/pipeline"
)

const (
	serviceName     = "product-comparison-api"
	maxRequestBytes = 1 << 20
	shutdownTimeout = 30 * time.Second
)

var (
	servePort    int
	serveOffline bool
	serveDryRun  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparison HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg, initMode{Offline: serveOffline, DryRun: serveDryRun})
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled {
			go newChecker(cfg.Monitoring, env.Store).Run(ctx)
		}

		router := buildRouter(env.Pipeline, env.Metrics, cfg.Server.CORSOrigins)
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "run without the language model")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false, "use canned stub clients instead of external services")
	rootCmd.AddCommand(serveCmd)
}

// comparer runs one comparison query.
type comparer interface {
	Run(ctx context.Context, query string) (*pipeline.Response, error)
}

// compareRequest is the body of POST /compare.
type compareRequest struct {
	UserQuery      string `json:"user_query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// errorDetail is the body of every 4xx/5xx response.
type errorDetail struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// buildRouter wires the API routes. The /api prefix mirrors every route for
// clients built against the older path layout. Credentialed CORS is only
// allowed when every origin is listed explicitly.
func buildRouter(p comparer, m *metrics.Metrics, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
		MaxAge:           300,
	}))

	routes := func(r chi.Router) {
		r.Get("/health", handleHealth)
		r.Get("/examples", handleExamples)
		r.Post("/compare", handleCompare(p))
	}
	r.Get("/", handleRoot)
	r.Group(routes)
	r.Route("/api", routes)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Product Comparison API",
		"version": version,
		"endpoints": map[string]string{
			"compare":  "POST /compare",
			"health":   "GET /health",
			"examples": "GET /examples",
			"metrics":  "GET /metrics",
		},
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func handleExamples(w http.ResponseWriter, _ *http.Request) {
	examples, err := catalog.Examples()
	if err != nil {
		zap.L().Error("serve: load examples", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorDetail{Error: "Examples unavailable", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": examples})
}

func handleCompare(p comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errorDetail{
				Error:      "Invalid request body",
				Message:    err.Error(),
				Suggestion: `Send {"user_query": "Compare iPhone 15 vs Samsung Galaxy S24"}`,
			})
			return
		}

		log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))
		log.Info("serve: comparison requested", zap.String("query", req.UserQuery))

		resp, err := p.Run(r.Context(), req.UserQuery)
		if err != nil {
			status, detail := compareFailure(err)
			if status >= http.StatusInternalServerError {
				log.Error("serve: comparison failed", zap.Error(err))
			}
			writeError(w, status, detail)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// compareFailure maps a pipeline error to a status code and client detail.
func compareFailure(err error) (int, errorDetail) {
	switch {
	case eris.Is(err, model.ErrNotEnoughProducts):
		return http.StatusBadRequest, errorDetail{
			Error:      "Not enough products",
			Message:    "Found fewer than 2 products. Need at least 2 to compare.",
			Suggestion: "Try: 'Compare Product A vs Product B'",
		}
	case model.IsUserError(err):
		return http.StatusBadRequest, errorDetail{
			Error:      "Product discovery failed",
			Message:    "Could not find products in query",
			Suggestion: "Try a query like: 'Compare iPhone 15 vs Samsung Galaxy S24'",
		}
	case errors.Is(err, context.Canceled):
		return 499, errorDetail{Error: "Comparison cancelled", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorDetail{Error: "Comparison failed", Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail errorDetail) {
	writeJSON(w, status, map[string]errorDetail{"detail": detail})
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// resolvePort prefers the flag value over the configured one.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}

// startServer serves handler until ctx is done, then drains in-flight
// requests.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}
