package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i2y/mcpfhir/internal/domain"
)

// InvocationKind tells the invoker how a tool is executed.
type InvocationKind string

const (
	// InvocationFHIR performs one FHIR REST call and renders the response.
	InvocationFHIR InvocationKind = "fhir"
	// InvocationAssessment runs the data quality assessor.
	InvocationAssessment InvocationKind = "assessment"
)

// InvocationDetails holds the information needed to execute a tool.
type InvocationDetails struct {
	// Kind selects the execution path.
	Kind InvocationKind `json:"kind"`

	// HTTPMethod is the HTTP verb (e.g., "GET").
	HTTPMethod string `json:"http_method,omitempty"`

	// HTTPPath is the path relative to the FHIR base URL (e.g., "Patient/{patient_id}").
	HTTPPath string `json:"http_path,omitempty"`

	// PathParams lists the arguments substituted into HTTPPath.
	PathParams []string `json:"path_params,omitempty"`

	// QueryParams lists the arguments sent as search parameters.
	QueryParams []string `json:"query_params,omitempty"`

	// Defaults are applied to arguments the caller did not supply.
	Defaults map[string]any `json:"defaults,omitempty"`

	// MissingArgMessages overrides the rejection text for a missing required argument.
	MissingArgMessages map[string]string `json:"missing_arg_messages,omitempty"`

	// Report selects the text rendering of the FHIR response.
	Report domain.ReportFormat `json:"report,omitempty"`
}

// ToolInvoker executes a tool described by InvocationDetails and returns its text reply.
type ToolInvoker interface {
	Invoke(ctx context.Context, details InvocationDetails, params map[string]any) (string, error)
}

// InvokeToolUseCase handles receiving a tool invocation request and executing it.
type InvokeToolUseCase struct {
	repository ToolRepository
	invoker    ToolInvoker
	validator  ArgumentValidator
	logger     *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase. validator may be nil.
func NewInvokeToolUseCase(repo ToolRepository, invoker ToolInvoker, validator ArgumentValidator, logger *slog.Logger) *InvokeToolUseCase {
	return &InvokeToolUseCase{
		repository: repo,
		invoker:    invoker,
		validator:  validator,
		logger:     logger.With("usecase", "InvokeTool"),
	}
}

// Execute finds the tool and its invocation details, checks the arguments,
// and hands the call to the ToolInvoker.
//
// Argument problems are not errors: they produce a plain rejection message
// as the reply text. Errors are returned only for unknown tools and
// invoker failures.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, params map[string]any) (string, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Info("Executing tool invocation")

	// 1. Find Tool Definition
	tool, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		log.Warn("Tool definition not found", slog.Any("error", err))
		return "", fmt.Errorf("tool '%s' definition not found: %w", toolName, err)
	}

	// 2. Find Invocation Details
	details, err := uc.repository.FindInvocationDetailsByName(ctx, toolName)
	if err != nil {
		log.Error("Invocation details not found", slog.Any("error", err))
		return "", fmt.Errorf("tool '%s' invocation details not found: %w", toolName, err)
	}

	if params == nil {
		params = map[string]any{}
	}

	// 3. Required arguments
	for _, name := range tool.InputSchema.Required {
		if isBlank(params[name]) {
			log.Warn("Missing required argument", slog.String("argument", name))
			if msg, ok := details.MissingArgMessages[name]; ok {
				return msg, nil
			}
			return fmt.Sprintf("%s is required", name), nil
		}
	}

	// 4. Validate argument types against tool.InputSchema
	if uc.validator != nil {
		if err := uc.validator.Validate(tool.InputSchema, params); err != nil {
			log.Warn("Invalid input parameters", slog.Any("error", err))
			return fmt.Sprintf("Invalid arguments for tool %s: %v", toolName, err), nil
		}
	}

	// 5. Invoke
	args := withDefaults(params, details.Defaults)
	result, err := uc.invoker.Invoke(ctx, *details, args)
	if err != nil {
		log.Error("Failed to invoke tool", slog.Any("error", err))
		return "", fmt.Errorf("failed to invoke tool %s: %w", toolName, err)
	}

	log.Info("Tool invocation successful")
	return result, nil
}

// withDefaults returns a copy of params with defaults filled in for absent keys.
func withDefaults(params, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range params {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
