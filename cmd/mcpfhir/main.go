package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/mcpfhir/configs"
)

func main() {
	var transport string
	flag.StringVar(&transport, "transport", "stdio", "Transport mode: stdio or sse")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(transport, cfg)
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("transport", transport))

	shutdownTracing, err := setupTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("Failed to flush traces.", slog.Any("error", err))
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize server.", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("MCP server initialized.", slog.String("name", serverName), slog.String("version", serverVersion))

	switch transport {
	case "stdio":
		logger.Info("Starting in STDIO mode")
		if err := mcpGoServer.NewStdioServer(a.mcpServer).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("STDIO server error", slog.Any("error", err))
			os.Exit(1)
		}

	case "sse":
		logger.Info("Starting in SSE mode")
		serveSSE(ctx, stop, cfg, a, logger)

	default:
		logger.Error("Invalid transport mode", slog.String("transport", transport))
		os.Exit(1)
	}
}

// newLogger writes to a file in stdio mode so stdout stays reserved for the protocol.
func newLogger(transport string, cfg *configs.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}
	if transport != "stdio" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, opts))
	}
	return slog.New(slog.NewTextHandler(logFile, opts))
}

func serveSSE(ctx context.Context, stop context.CancelFunc, cfg *configs.Config, a *app, logger *slog.Logger) {
	sseServer := mcpGoServer.NewSSEServer(a.mcpServer, mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))

	adminServer := &http.Server{
		Addr:        cfg.AdminAddr,
		Handler:     a.admin.Routes(),
		ReadTimeout: cfg.ServerReadTimeout,
		IdleTimeout: cfg.ServerIdleTimeout,
	}
	go func() {
		logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin HTTP server failed.", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("MCP SSE server starting.", slog.String("address", cfg.ListenAddr))
		if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("MCP SSE server failed.", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin HTTP server graceful shutdown failed.", slog.Any("error", err))
	}
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
	}
	logger.Info("Servers shut down gracefully.")
}
