package usecase_test

import (
	"context"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/mock"

	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

// MockToolRepository is a mock implementation of the ToolRepository interface.
type MockToolRepository struct {
	mock.Mock
}

func (m *MockToolRepository) Save(ctx context.Context, tools []domain.Tool, details []usecase.InvocationDetails) error {
	args := m.Called(ctx, tools, details)
	return args.Error(0)
}

func (m *MockToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	args := m.Called(ctx)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.([]domain.Tool), args.Error(1)
}

func (m *MockToolRepository) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	args := m.Called(ctx, name)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*domain.Tool), args.Error(1)
}

func (m *MockToolRepository) FindInvocationDetailsByName(ctx context.Context, name string) (*usecase.InvocationDetails, error) {
	args := m.Called(ctx, name)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*usecase.InvocationDetails), args.Error(1)
}

// MockToolInvoker is a mock implementation of the ToolInvoker interface.
type MockToolInvoker struct {
	mock.Mock
}

func (m *MockToolInvoker) Invoke(ctx context.Context, details usecase.InvocationDetails, params map[string]any) (string, error) {
	args := m.Called(ctx, details, params)
	return args.String(0), args.Error(1)
}

// MockArgumentValidator is a mock implementation of the ArgumentValidator interface.
type MockArgumentValidator struct {
	mock.Mock
}

func (m *MockArgumentValidator) Validate(schema domain.JSONSchemaProps, params map[string]any) error {
	args := m.Called(schema, params)
	return args.Error(0)
}

// MockGateway is a mock implementation of the Gateway interface.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Request(ctx context.Context, method, path string, query url.Values) (domain.Document, error) {
	args := m.Called(ctx, method, path, query)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(domain.Document), args.Error(1)
}

// MockMCPServerAdapter records registered tools and their handlers.
type MockMCPServerAdapter struct {
	mock.Mock
	handlers map[string]mcpGoServer.ToolHandlerFunc
}

func (m *MockMCPServerAdapter) AddTool(tool mcp.Tool, handler mcpGoServer.ToolHandlerFunc) {
	m.Called(tool, handler)
	if m.handlers == nil {
		m.handlers = make(map[string]mcpGoServer.ToolHandlerFunc)
	}
	m.handlers[tool.Name] = handler
}
