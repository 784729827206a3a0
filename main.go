package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-pipe/internal/handlers"
	"media-pipe/internal/logging"
	"media-pipe/internal/metrics"
	"media-pipe/internal/middleware"
	"media-pipe/internal/startup"
	"media-pipe/internal/store"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize store
	storeStart := time.Now()
	st, err := store.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error("Failed to close store: %v", err)
		}
	}()
	startup.LogStoreInit(time.Since(storeStart))

	// Check the transform binaries
	startup.LogTransformInit(config.FFmpegPath, config.FFprobePath)

	// Pre-populate metric label combinations
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Sweep expired sessions and their stored attachments periodically
	sweepDone := make(chan struct{})
	go sessionSweep(st, sweepDone)

	// Initialize handlers
	h := handlers.New(st, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Middleware chain: auth outermost, then logging, then metrics
	metricsHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(metricsHandler)

	handler := middleware.Auth(middleware.DefaultAuthConfig(config.AccessTokenHash))(loggedHandler)

	// WriteTimeout stays 0: transcode responses stream for as long as
	// the pipeline's own run timeout allows.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, sweepDone)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/operations", h.Operations).Methods("GET")
	api.HandleFunc("/transcode/{operation}", h.Transcode).Methods("POST")
	api.HandleFunc("/preview", h.Preview).Methods("POST")
	api.HandleFunc("/probe", h.Probe).Methods("POST")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")

	// Two-step sessions for operations needing a side input
	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/attachment", h.UploadAttachment).Methods("PUT")

	return r
}

// sessionSweep removes expired sessions and their attachment files
// until done is closed.
func sessionSweep(st *store.Store, done chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			auxPaths, err := st.CleanExpiredSessions(ctx)
			cancel()
			if err != nil {
				logging.Error("Session sweep failed: %v", err)
				continue
			}
			for _, path := range auxPaths {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					logging.Warn("Failed to remove expired attachment %s: %v", path, err)
				}
			}
		case <-done:
			return
		}
	}
}

func handleShutdown(srv *http.Server, sweepDone chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping session sweep")
	close(sweepDone)
	startup.LogShutdownStepComplete("Session sweep stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
