package invoker_test

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/mcpfhir/internal/adapter/outbound/invoker"
	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Request(ctx context.Context, method, path string, query url.Values) (domain.Document, error) {
	args := m.Called(ctx, method, path, query)
	if doc := args.Get(0); doc != nil {
		return doc.(domain.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAssessor struct{ mock.Mock }

func (m *mockAssessor) Execute(ctx context.Context, categories []string) domain.QualityAssessment {
	return m.Called(ctx, categories).Get(0).(domain.QualityAssessment)
}

type mockReporter struct{ mock.Mock }

func (m *mockReporter) Render(format domain.ReportFormat, doc domain.Document, params map[string]any) string {
	return m.Called(format, doc, params).String(0)
}

func (m *mockReporter) RenderAssessment(a domain.QualityAssessment) string {
	return m.Called(a).String(0)
}

func newRouter() (*invoker.Router, *mockGateway, *mockAssessor, *mockReporter) {
	gw, as, rep := new(mockGateway), new(mockAssessor), new(mockReporter)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return invoker.NewRouter(gw, as, rep, logger), gw, as, rep
}

func TestRouter_Invoke_FHIR(t *testing.T) {
	ctx := context.Background()
	bundle := domain.Document{"resourceType": "Bundle", "total": float64(0)}

	tests := []struct {
		name      string
		details   usecase.InvocationDetails
		params    map[string]any
		wantPath  string
		wantQuery url.Values
	}{
		{
			name: "Path parameter is substituted and escaped",
			details: usecase.InvocationDetails{
				Kind: usecase.InvocationFHIR, HTTPMethod: "GET", HTTPPath: "Patient/{patient_id}",
				PathParams: []string{"patient_id"}, Report: domain.ReportPatient,
			},
			params:    map[string]any{"patient_id": "a b/c"},
			wantPath:  "Patient/a%20b%2Fc",
			wantQuery: url.Values{},
		},
		{
			name: "Declared query parameters are coerced",
			details: usecase.InvocationDetails{
				Kind: usecase.InvocationFHIR, HTTPMethod: "GET", HTTPPath: "Condition",
				QueryParams: []string{"patient", "code", "clinical-status", "_count"},
				Report:      domain.ReportConditions,
			},
			params: map[string]any{
				"patient": "123", "code": "", "_count": float64(10), "unrelated": "x",
			},
			wantPath:  "Condition",
			wantQuery: url.Values{"patient": {"123"}, "_count": {"10"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, gw, _, rep := newRouter()
			gw.On("Request", mock.Anything, "GET", tt.wantPath, tt.wantQuery).Return(bundle, nil).Once()
			rep.On("Render", tt.details.Report, bundle, tt.params).Return("rendered").Once()

			got, err := router.Invoke(ctx, tt.details, tt.params)
			require.NoError(t, err)
			assert.Equal(t, "rendered", got)
			gw.AssertExpectations(t)
			rep.AssertExpectations(t)
		})
	}
}

func TestRouter_Invoke_GatewayError(t *testing.T) {
	router, gw, _, rep := newRouter()
	gw.On("Request", mock.Anything, "GET", "metadata", url.Values{}).Return(nil, context.Canceled).Once()

	_, err := router.Invoke(context.Background(), usecase.InvocationDetails{
		Kind: usecase.InvocationFHIR, HTTPMethod: "GET", HTTPPath: "metadata", Report: domain.ReportCapability,
	}, map[string]any{})

	assert.ErrorIs(t, err, context.Canceled)
	rep.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_Invoke_BadQueryValue(t *testing.T) {
	router, gw, _, _ := newRouter()

	_, err := router.Invoke(context.Background(), usecase.InvocationDetails{
		Kind: usecase.InvocationFHIR, HTTPMethod: "GET", HTTPPath: "Patient", QueryParams: []string{"name"},
	}, map[string]any{"name": []string{"a", "b"}})

	assert.ErrorContains(t, err, "invalid value for query parameter name")
	gw.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_Invoke_Assessment(t *testing.T) {
	assessment := domain.QualityAssessment{ServerURL: "http://fhir.test"}

	t.Run("single category", func(t *testing.T) {
		router, _, as, rep := newRouter()
		as.On("Execute", mock.Anything, []string{"Observation"}).Return(assessment).Once()
		rep.On("RenderAssessment", assessment).Return("report").Once()

		got, err := router.Invoke(context.Background(),
			usecase.InvocationDetails{Kind: usecase.InvocationAssessment},
			map[string]any{"resource_type": "Observation"})
		require.NoError(t, err)
		assert.Equal(t, "report", got)
		as.AssertExpectations(t)
	})

	t.Run("defaults when resource_type is absent", func(t *testing.T) {
		router, _, as, rep := newRouter()
		as.On("Execute", mock.Anything, []string(nil)).Return(assessment).Once()
		rep.On("RenderAssessment", assessment).Return("report").Once()

		got, err := router.Invoke(context.Background(),
			usecase.InvocationDetails{Kind: usecase.InvocationAssessment}, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "report", got)
		as.AssertExpectations(t)
	})
}

func TestRouter_Invoke_UnknownKind(t *testing.T) {
	router, _, _, _ := newRouter()
	_, err := router.Invoke(context.Background(), usecase.InvocationDetails{Kind: "graphql"}, nil)
	assert.EqualError(t, err, "unknown invocation kind: graphql")
	assert.False(t, errors.Is(err, context.Canceled))
}
