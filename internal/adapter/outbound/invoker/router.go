package invoker

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/i2y/mcpfhir/internal/usecase"
)

// Router implements usecase.ToolInvoker and routes invocations based on the Kind field.
type Router struct {
	gateway  usecase.Gateway
	assessor usecase.Assessor
	reporter usecase.Reporter
	logger   *slog.Logger
}

// NewRouter creates a new invoker router.
func NewRouter(gateway usecase.Gateway, assessor usecase.Assessor, reporter usecase.Reporter, logger *slog.Logger) *Router {
	return &Router{
		gateway:  gateway,
		assessor: assessor,
		reporter: reporter,
		logger:   logger.With("component", "invoker_router"),
	}
}

// Invoke routes the invocation to the gateway or the assessor and renders the reply text.
func (r *Router) Invoke(ctx context.Context, details usecase.InvocationDetails, params map[string]any) (string, error) {
	log := r.logger.With(slog.String("kind", string(details.Kind)))

	switch details.Kind {
	case usecase.InvocationAssessment:
		log.Debug("Routing to quality assessor")
		var categories []string
		if rt := strings.TrimSpace(cast.ToString(params["resource_type"])); rt != "" {
			categories = []string{rt}
		}
		return r.reporter.RenderAssessment(r.assessor.Execute(ctx, categories)), nil

	case usecase.InvocationFHIR, "":
		path, err := expandPath(details.HTTPPath, details.PathParams, params)
		if err != nil {
			return "", err
		}
		query, err := buildQuery(details.QueryParams, params)
		if err != nil {
			return "", err
		}
		log.Debug("Routing to FHIR gateway", slog.String("path", path))

		doc, err := r.gateway.Request(ctx, details.HTTPMethod, path, query)
		if err != nil {
			return "", err
		}
		return r.reporter.Render(details.Report, doc, params), nil

	default:
		log.Error("Unknown invocation kind")
		return "", fmt.Errorf("unknown invocation kind: %s", details.Kind)
	}
}

func expandPath(template string, names []string, params map[string]any) (string, error) {
	path := template
	for _, name := range names {
		value, err := cast.ToStringE(params[name])
		if err != nil {
			return "", fmt.Errorf("invalid value for path parameter %s: %w", name, err)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path, nil
}

// buildQuery sends only declared parameters; absent and empty values are left out.
func buildQuery(names []string, params map[string]any) (url.Values, error) {
	query := url.Values{}
	for _, name := range names {
		raw, ok := params[name]
		if !ok || raw == nil {
			continue
		}
		value, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for query parameter %s: %w", name, err)
		}
		if value == "" {
			continue
		}
		query.Set(name, value)
	}
	return query, nil
}
