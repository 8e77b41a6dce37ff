package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/mcpfhir/internal/domain"
)

// RegisterToolsUseCase publishes every stored tool on the MCP server. Each
// tool's handler routes the call through InvokeToolUseCase.
type RegisterToolsUseCase struct {
	repository ToolRepository
	invoker    *InvokeToolUseCase
	server     MCPServerAdapter
	logger     *slog.Logger
}

// NewRegisterToolsUseCase creates a new RegisterToolsUseCase.
func NewRegisterToolsUseCase(
	repository ToolRepository,
	invoker *InvokeToolUseCase,
	server MCPServerAdapter,
	logger *slog.Logger,
) *RegisterToolsUseCase {
	return &RegisterToolsUseCase{
		repository: repository,
		invoker:    invoker,
		server:     server,
		logger:     logger.With("usecase", "RegisterTools"),
	}
}

// Execute registers all tools from the repository with the MCP server.
func (uc *RegisterToolsUseCase) Execute(ctx context.Context) error {
	tools, err := uc.repository.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list tools for registration", slog.Any("error", err))
		return fmt.Errorf("failed to list tools for registration: %w", err)
	}

	for _, tool := range tools {
		uc.server.AddTool(toMCPTool(tool), uc.handlerFor(tool.Name))
		uc.logger.Debug("Registered tool", slog.String("tool_name", tool.Name))
	}
	uc.logger.Info("Registered tools with MCP server", slog.Int("tool_count", len(tools)))
	return nil
}

// handlerFor returns the mcp-go handler of a tool. Failures become text
// error replies so a bad call never takes the server down.
func (uc *RegisterToolsUseCase) handlerFor(name string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reply, err := uc.invoker.Execute(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error calling tool %s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(reply), nil
	}
}

func toMCPTool(tool domain.Tool) mcp.Tool {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	// Catalog tools only ever read from the FHIR server.
	opts := []mcp.ToolOption{
		mcp.WithDescription(tool.Description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}
	for _, name := range names {
		opts = append(opts, toolProperty(name, tool.InputSchema.Properties[name], required[name]))
	}
	return mcp.NewTool(tool.Name, opts...)
}

func toolProperty(name string, prop domain.JSONSchemaProps, required bool) mcp.ToolOption {
	var popts []mcp.PropertyOption
	if prop.Description != "" {
		popts = append(popts, mcp.Description(prop.Description))
	}
	if required {
		popts = append(popts, mcp.Required())
	}

	switch prop.Type {
	case "integer", "number":
		if prop.Type == "integer" {
			popts = append(popts, integerType())
		}
		if n, ok := toFloat(prop.Default); ok {
			popts = append(popts, mcp.DefaultNumber(n))
		}
		return mcp.WithNumber(name, popts...)
	case "boolean":
		if b, ok := prop.Default.(bool); ok {
			popts = append(popts, mcp.DefaultBool(b))
		}
		return mcp.WithBoolean(name, popts...)
	default:
		if s, ok := prop.Default.(string); ok {
			popts = append(popts, mcp.DefaultString(s))
		}
		if len(prop.Enum) > 0 {
			values := make([]string, 0, len(prop.Enum))
			for _, v := range prop.Enum {
				values = append(values, fmt.Sprint(v))
			}
			popts = append(popts, mcp.Enum(values...))
		}
		return mcp.WithString(name, popts...)
	}
}

// integerType narrows a WithNumber property to a JSON Schema integer.
func integerType() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["type"] = "integer"
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
