package usecase

import (
	"context"
	"errors"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/mcpfhir/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound = errors.New("tool not found")
)

// --- FHIR Access ---

// Gateway issues a single request against the FHIR server.
//
// HTTP, transport and payload failures never surface as errors: they are
// returned as OperationOutcome documents. The error return is reserved for
// the caller's own context being cancelled or past its deadline.
type Gateway interface {
	Request(ctx context.Context, method, path string, query url.Values) (domain.Document, error)
}

// Assessor runs a data quality assessment over resource categories.
type Assessor interface {
	Execute(ctx context.Context, categories []string) domain.QualityAssessment
}

// Reporter renders gateway documents and assessments as plain text.
type Reporter interface {
	Render(format domain.ReportFormat, doc domain.Document, params map[string]any) string
	RenderAssessment(assessment domain.QualityAssessment) string
}

// ArgumentValidator checks tool arguments against a tool's input schema.
type ArgumentValidator interface {
	Validate(schema domain.JSONSchemaProps, args map[string]any) error
}

// --- Tool Catalog ---

// ToolRepository defines the contract for storing and retrieving Tools
// and their InvocationDetails.
type ToolRepository interface {
	// Save stores a list of tools and their associated invocation details.
	// The two slices correspond by index.
	Save(ctx context.Context, tools []domain.Tool, details []InvocationDetails) error

	// List retrieves all currently stored tools.
	List(ctx context.Context) ([]domain.Tool, error)

	// FindToolByName retrieves a specific tool definition by its unique name.
	FindToolByName(ctx context.Context, name string) (*domain.Tool, error)

	// FindInvocationDetailsByName retrieves the invocation details for a specific tool by name.
	FindInvocationDetailsByName(ctx context.Context, name string) (*InvocationDetails, error)
}

// --- MCP Server Abstraction ---

// MCPServerAdapter defines the interface required by RegisterToolsUseCase
// to interact with the underlying MCP server (like mcp-go).
type MCPServerAdapter interface {
	// AddTool registers a tool and its handler with the server.
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}
