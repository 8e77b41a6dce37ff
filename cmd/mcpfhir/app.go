package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/mcpfhir/configs"
	"github.com/i2y/mcpfhir/internal/adapter/inbound/mcphttp"
	"github.com/i2y/mcpfhir/internal/adapter/outbound/fhirclient"
	"github.com/i2y/mcpfhir/internal/adapter/outbound/invoker"
	"github.com/i2y/mcpfhir/internal/adapter/outbound/memrepo"
	"github.com/i2y/mcpfhir/internal/adapter/outbound/schemacheck"
	"github.com/i2y/mcpfhir/internal/adapter/outbound/textreport"
	"github.com/i2y/mcpfhir/internal/catalog"
	"github.com/i2y/mcpfhir/internal/usecase"
)

const (
	serverName    = "mcpfhir"
	serverVersion = "0.1.0"
)

// app is the wired server: the MCP tool surface plus the admin handlers.
type app struct {
	mcpServer *mcpGoServer.MCPServer
	admin     *mcphttp.Handlers
}

// newApp builds every dependency explicitly and registers the tool catalog.
func newApp(ctx context.Context, cfg *configs.Config, logger *slog.Logger) (*app, error) {
	gateway, err := fhirclient.New(&http.Client{Timeout: cfg.FHIRTimeout}, fhirclient.Options{
		BaseURL:   cfg.FHIRBaseURL,
		AuthToken: cfg.FHIRAuthToken,
		Headers:   cfg.FHIRHeaders,
		Timeout:   cfg.FHIRTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create FHIR client: %w", err)
	}
	logger.Info("FHIR client configured.",
		slog.String("base_url", gateway.BaseURL()),
		slog.Duration("timeout", cfg.FHIRTimeout),
		slog.Bool("auth", cfg.FHIRAuthToken != ""))

	assessor := usecase.NewAssessQualityUseCase(gateway, usecase.AssessmentConfig{
		ServerURL:  gateway.BaseURL(),
		Categories: cfg.AssessCategories,
		SampleSize: cfg.AssessSampleSize,
		Workers:    cfg.AssessWorkers,
	}, logger)

	toolRepo := memrepo.New(logger)
	tools, details := catalog.Tools()
	if err := toolRepo.Save(ctx, tools, details); err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}

	router := invoker.NewRouter(gateway, assessor, textreport.New(), logger)
	invokeUC := usecase.NewInvokeToolUseCase(toolRepo, router, schemacheck.New(logger), logger)

	mcpSrv := mcpGoServer.NewMCPServer(
		serverName,
		serverVersion,
		mcpGoServer.WithRecovery(),
		mcpGoServer.WithToolCapabilities(false),
	)
	if err := usecase.NewRegisterToolsUseCase(toolRepo, invokeUC, mcpSrv, logger).Execute(ctx); err != nil {
		return nil, err
	}

	return &app{
		mcpServer: mcpSrv,
		admin:     mcphttp.NewHandlers(usecase.NewServeToolsUseCase(toolRepo, logger), assessor, logger),
	}, nil
}
