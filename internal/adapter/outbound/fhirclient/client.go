package fhirclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/mcpfhir/internal/domain"
)

// MIMEApplicationFHIRJSON is the media type of FHIR JSON payloads.
const MIMEApplicationFHIRJSON = "application/fhir+json"

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodyBytes applies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 32 << 20

const instrumentationName = "github.com/i2y/mcpfhir/internal/adapter/outbound/fhirclient"

// Options configures a Client.
type Options struct {
	// BaseURL is the FHIR service root, e.g. https://hapi.fhir.org/baseR4.
	BaseURL string
	// AuthToken is sent as a Bearer token when non-empty.
	AuthToken string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout bounds a single request.
	Timeout time.Duration
	// MaxBodyBytes caps a response body; larger bodies become an invalid outcome.
	MaxBodyBytes int64
}

// Client issues FHIR REST requests. It implements usecase.Gateway.
type Client struct {
	client    *http.Client
	baseURL   string
	authToken string
	headers   map[string]string
	maxBody   int64
	tracer    trace.Tracer
	requests  metric.Int64Counter
	logger    *slog.Logger
}

// New creates a Client. httpClient is copied, and the copy gets the
// configured timeout when it has none. A nil httpClient is allowed.
func New(httpClient *http.Client, opts Options, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid FHIR base URL %q: %w", opts.BaseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid FHIR base URL %q: must be an absolute http(s) URL", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	// Copy so a shared client such as http.DefaultClient is never mutated.
	hc := http.Client{}
	if httpClient != nil {
		hc = *httpClient
	}
	if hc.Timeout == 0 {
		hc.Timeout = timeout
	}

	requests, err := otel.Meter(instrumentationName).Int64Counter(
		"fhir.client.requests",
		metric.WithDescription("FHIR requests by outcome code"),
	)
	if err != nil {
		requests, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("fhir.client.requests")
	}

	return &Client{
		client:    &hc,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		authToken: opts.AuthToken,
		headers:   opts.Headers,
		maxBody:   maxBody,
		tracer:    otel.Tracer(instrumentationName),
		requests:  requests,
		logger:    logger.With("component", "fhir_client"),
	}, nil
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs method on <base>/<path>. Every failure of the remote
// side is reported as an OperationOutcome document. An error is returned
// only when ctx itself is cancelled or expired.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values) (domain.Document, error) {
	reqURL := c.baseURL + "/" + path
	log := c.logger.With(slog.String("method", method), slog.String("path", path))

	ctx, span := c.tracer.Start(ctx, "fhir.request", trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("fhir.path", path),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		log.Error("Failed to create FHIR request", slog.Any("error", err))
		return c.outcome(ctx, span, domain.IssueCodeException, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	req.Header.Set("Accept", MIMEApplicationFHIRJSON)
	req.Header.Set("Content-Type", MIMEApplicationFHIRJSON)
	req.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	log = log.With(slog.String("url", req.URL.String()), slog.String("request_id", req.Header.Get("X-Request-Id")))
	log.Debug("Executing FHIR request")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("FHIR request abandoned", slog.Any("error", ctxErr))
			span.RecordError(ctxErr)
			span.SetStatus(codes.Error, ctxErr.Error())
			return nil, fmt.Errorf("fhir request canceled: %w", ctxErr)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Warn("FHIR request timed out", slog.Any("error", err))
			return c.outcome(ctx, span, domain.IssueCodeTimeout, "Request timed out"), nil
		}
		log.Error("FHIR request failed", slog.Any("error", err))
		return c.outcome(ctx, span, domain.IssueCodeException, fmt.Sprintf("HTTP error: %v", err)), nil
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log = log.With(slog.Int("status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Info("FHIR resource not found")
		return c.outcome(ctx, span, domain.IssueCodeNotFound, "Resource not found: "+path), nil
	case resp.StatusCode == http.StatusUnauthorized:
		log.Warn("FHIR server requires authentication")
		return c.outcome(ctx, span, domain.IssueCodeSecurity, "Authentication required"), nil
	case resp.StatusCode == http.StatusForbidden:
		log.Warn("FHIR server denied access")
		return c.outcome(ctx, span, domain.IssueCodeForbidden, "Access forbidden"), nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		log.Warn("FHIR server returned non-success status")
		return c.outcome(ctx, span, domain.IssueCodeException,
			fmt.Sprintf("HTTP error: %s for url %s", resp.Status, req.URL.String())), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fhir request canceled: %w", ctxErr)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return c.outcome(ctx, span, domain.IssueCodeTimeout, "Request timed out"), nil
		}
		log.Error("Failed to read FHIR response body", slog.Any("error", err))
		return c.outcome(ctx, span, domain.IssueCodeException, fmt.Sprintf("HTTP error: %v", err)), nil
	}

	if int64(len(body)) > c.maxBody {
		log.Warn("FHIR response body too large", slog.Int64("limit_bytes", c.maxBody))
		return c.outcome(ctx, span, domain.IssueCodeInvalid,
			fmt.Sprintf("Invalid JSON response: body exceeds %d bytes", c.maxBody)), nil
	}

	doc, err := decodeObject(body)
	if err != nil {
		log.Warn("FHIR response is not a JSON object", slog.Any("error", err))
		return c.outcome(ctx, span, domain.IssueCodeInvalid, fmt.Sprintf("Invalid JSON response: %v", err)), nil
	}

	log.Debug("FHIR request succeeded", slog.String("resource_type", doc.ResourceType()))
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("fhir.outcome", "ok")))
	return doc, nil
}

func (c *Client) outcome(ctx context.Context, span trace.Span, code, text string) domain.Document {
	span.SetStatus(codes.Error, text)
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("fhir.outcome", code)))
	return domain.NewOutcome(domain.SeverityError, code, text)
}

func decodeObject(body []byte) (domain.Document, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return domain.Document(obj), nil
}
