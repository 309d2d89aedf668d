package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/api"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/config"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/gemini"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/log"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/observability"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Start the HTTP API server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Server address (host:port), overrides config")
	rootCmd.AddCommand(serveCmd)
}

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // SSE streaming needs longer timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the HTTP API server.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := resolveAddr(cfg.Addr, serveAddr, args)
	if err != nil {
		return fmt.Errorf("resolving address: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", version)

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Tracing.Environment,
			ServiceName: cfg.Tracing.ServiceName,
		}, logger)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("flushing traces", "error", err)
			}
		}()
	}

	st := store.New(store.Config{
		MaxSessions:           cfg.MaxSessions,
		SessionTimeout:        cfg.SessionTimeout(),
		MaxMessagesPerSession: cfg.MaxMessagesPerSession,
		CleanupInterval:       cfg.CleanupInterval(),
	}, logger)
	st.StartCleanup(ctx)

	// Without an API key the server still runs; chat endpoints report 503.
	var generator api.Generator
	client, err := gemini.New(ctx, gemini.Config{
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   int32(cfg.MaxTokens),
	}, logger)
	switch {
	case err == nil:
		generator = client
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logger.Warn("GEMINI_API_KEY not set, chat endpoints disabled")
	default:
		return fmt.Errorf("creating gemini client: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Store:       st,
		Generator:   generator,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
