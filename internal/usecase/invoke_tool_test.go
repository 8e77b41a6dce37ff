package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

func TestInvokeToolUseCase_Execute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	getPatient := &domain.Tool{
		Name: "get_patient",
		InputSchema: domain.JSONSchemaProps{
			Type: "object",
			Properties: map[string]domain.JSONSchemaProps{
				"patient_id": {Type: "string"},
			},
			Required: []string{"patient_id"},
		},
	}
	getPatientDetails := &usecase.InvocationDetails{
		Kind:               usecase.InvocationFHIR,
		HTTPMethod:         "GET",
		HTTPPath:           "Patient/{patient_id}",
		PathParams:         []string{"patient_id"},
		MissingArgMessages: map[string]string{"patient_id": "Patient ID is required"},
		Report:             domain.ReportPatient,
	}

	searchPatients := &domain.Tool{
		Name: "search_patients",
		InputSchema: domain.JSONSchemaProps{
			Type: "object",
			Properties: map[string]domain.JSONSchemaProps{
				"name":   {Type: "string"},
				"_count": {Type: "integer", Default: 10},
			},
		},
	}
	searchDetails := &usecase.InvocationDetails{
		Kind:        usecase.InvocationFHIR,
		HTTPMethod:  "GET",
		HTTPPath:    "Patient",
		QueryParams: []string{"name", "family", "_count"},
		Defaults:    map[string]any{"_count": 10},
		Report:      domain.ReportPatientSearch,
	}

	invokeErr := errors.New("gateway exploded")

	tests := []struct {
		name       string
		toolName   string
		params     map[string]any
		mockSetup  func(*MockToolRepository, *MockToolInvoker, *MockArgumentValidator)
		want       string
		wantErr    bool
		errIs      error
		errContain string
	}{
		{
			name:     "Success - reply from invoker",
			toolName: "get_patient",
			params:   map[string]any{"patient_id": "123"},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_patient").Return(getPatient, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "get_patient").Return(getPatientDetails, nil).Once()
				val.On("Validate", getPatient.InputSchema, map[string]any{"patient_id": "123"}).Return(nil).Once()
				inv.On("Invoke", mock.Anything, *getPatientDetails, map[string]any{"patient_id": "123"}).
					Return("Patient: John Doe", nil).Once()
			},
			want: "Patient: John Doe",
		},
		{
			name:     "Defaults fill absent arguments",
			toolName: "search_patients",
			params:   map[string]any{"name": "Smith"},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "search_patients").Return(searchPatients, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "search_patients").Return(searchDetails, nil).Once()
				val.On("Validate", searchPatients.InputSchema, mock.Anything).Return(nil).Once()
				inv.On("Invoke", mock.Anything, *searchDetails, map[string]any{"name": "Smith", "_count": 10}).
					Return("Found 0 patients:", nil).Once()
			},
			want: "Found 0 patients:",
		},
		{
			name:     "Caller value overrides default",
			toolName: "search_patients",
			params:   map[string]any{"_count": float64(3)},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "search_patients").Return(searchPatients, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "search_patients").Return(searchDetails, nil).Once()
				val.On("Validate", searchPatients.InputSchema, mock.Anything).Return(nil).Once()
				inv.On("Invoke", mock.Anything, *searchDetails, map[string]any{"_count": float64(3)}).
					Return("ok", nil).Once()
			},
			want: "ok",
		},
		{
			name:     "Missing required argument uses custom message",
			toolName: "get_patient",
			params:   map[string]any{},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_patient").Return(getPatient, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "get_patient").Return(getPatientDetails, nil).Once()
			},
			want: "Patient ID is required",
		},
		{
			name:     "Blank required argument is rejected",
			toolName: "get_patient",
			params:   map[string]any{"patient_id": "   "},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_patient").Return(getPatient, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "get_patient").Return(getPatientDetails, nil).Once()
			},
			want: "Patient ID is required",
		},
		{
			name:     "Schema violation is reported as text",
			toolName: "search_patients",
			params:   map[string]any{"_count": "many"},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "search_patients").Return(searchPatients, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "search_patients").Return(searchDetails, nil).Once()
				val.On("Validate", searchPatients.InputSchema, mock.Anything).Return(errors.New("_count: value must be an integer")).Once()
			},
			want: "Invalid arguments for tool search_patients: _count: value must be an integer",
		},
		{
			name:     "Failure - unknown tool",
			toolName: "get_encounter",
			params:   map[string]any{},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_encounter").Return(nil, usecase.ErrToolNotFound).Once()
			},
			wantErr: true,
			errIs:   usecase.ErrToolNotFound,
		},
		{
			name:     "Failure - invocation details missing",
			toolName: "get_patient",
			params:   map[string]any{"patient_id": "1"},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_patient").Return(getPatient, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "get_patient").Return(nil, usecase.ErrToolNotFound).Once()
			},
			wantErr: true,
			errIs:   usecase.ErrToolNotFound,
		},
		{
			name:     "Failure - invoker error is wrapped",
			toolName: "get_patient",
			params:   map[string]any{"patient_id": "1"},
			mockSetup: func(repo *MockToolRepository, inv *MockToolInvoker, val *MockArgumentValidator) {
				repo.On("FindToolByName", mock.Anything, "get_patient").Return(getPatient, nil).Once()
				repo.On("FindInvocationDetailsByName", mock.Anything, "get_patient").Return(getPatientDetails, nil).Once()
				val.On("Validate", getPatient.InputSchema, mock.Anything).Return(nil).Once()
				inv.On("Invoke", mock.Anything, *getPatientDetails, mock.Anything).Return("", invokeErr).Once()
			},
			wantErr:    true,
			errIs:      invokeErr,
			errContain: "failed to invoke tool get_patient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockToolRepository)
			inv := new(MockToolInvoker)
			val := new(MockArgumentValidator)
			tt.mockSetup(repo, inv, val)

			uc := usecase.NewInvokeToolUseCase(repo, inv, val, logger)
			got, err := uc.Execute(ctx, tt.toolName, tt.params)

			if tt.wantErr {
				assert.Error(err)
				assert.ErrorIs(err, tt.errIs)
				if tt.errContain != "" {
					assert.Contains(err.Error(), tt.errContain)
				}
				assert.Empty(got)
			} else {
				assert.NoError(err)
				assert.Equal(tt.want, got)
			}

			repo.AssertExpectations(t)
			inv.AssertExpectations(t)
			val.AssertExpectations(t)
		})
	}
}

func TestInvokeToolUseCase_NilValidator(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tool := &domain.Tool{Name: "get_capability_statement", InputSchema: domain.JSONSchemaProps{Type: "object"}}
	details := &usecase.InvocationDetails{Kind: usecase.InvocationFHIR, HTTPMethod: "GET", HTTPPath: "metadata", Report: domain.ReportCapability}

	repo := new(MockToolRepository)
	repo.On("FindToolByName", mock.Anything, tool.Name).Return(tool, nil)
	repo.On("FindInvocationDetailsByName", mock.Anything, tool.Name).Return(details, nil)
	inv := new(MockToolInvoker)
	inv.On("Invoke", mock.Anything, *details, map[string]any{}).Return("FHIR Server Capability Statement:", nil)

	uc := usecase.NewInvokeToolUseCase(repo, inv, nil, logger)
	got, err := uc.Execute(ctx, tool.Name, nil)

	assert.NoError(t, err)
	assert.Equal(t, "FHIR Server Capability Statement:", got)
	inv.AssertExpectations(t)
}
