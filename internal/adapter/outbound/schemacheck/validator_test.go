package schemacheck_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i2y/mcpfhir/internal/adapter/outbound/schemacheck"
	"github.com/i2y/mcpfhir/internal/domain"
)

func TestValidator_Validate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v := schemacheck.New(logger)

	schema := domain.JSONSchemaProps{
		Type: "object",
		Properties: map[string]domain.JSONSchemaProps{
			"patient": {Type: "string", Description: "Patient ID"},
			"status":  {Type: "string", Enum: []any{"active", "completed"}},
			"_count":  {Type: "integer", Default: 10},
		},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{name: "Empty arguments", args: map[string]any{}},
		{name: "Nil arguments", args: nil},
		{name: "Valid arguments", args: map[string]any{"patient": "123", "_count": float64(20), "status": "active"}},
		{name: "Null is treated as absent", args: map[string]any{"patient": nil}},
		{name: "Numeric string accepted for integer", args: map[string]any{"_count": "15"}},
		{name: "Unknown arguments are allowed", args: map[string]any{"foo": "bar"}},
		{name: "Wrong type for string", args: map[string]any{"patient": float64(5)}, wantErr: "patient: value must be a string"},
		{name: "Fractional integer", args: map[string]any{"_count": 1.5}, wantErr: "_count: value must be an integer"},
		{name: "Non-numeric string for integer", args: map[string]any{"_count": "many"}, wantErr: "_count: value must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(schema, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}

	t.Run("Enum violation", func(t *testing.T) {
		err := v.Validate(schema, map[string]any{"status": "paused"})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "status: ")
		}
	})

	t.Run("Required property", func(t *testing.T) {
		required := domain.JSONSchemaProps{
			Type:       "object",
			Properties: map[string]domain.JSONSchemaProps{"patient_id": {Type: "string"}},
			Required:   []string{"patient_id"},
		}
		err := v.Validate(required, map[string]any{})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), `property "patient_id" is missing`)
		}
	})
}

func TestToOpenAPI(t *testing.T) {
	s := schemacheck.ToOpenAPI(domain.JSONSchemaProps{
		Type:     "object",
		Required: []string{"patient_id"},
		Properties: map[string]domain.JSONSchemaProps{
			"patient_id": {Type: "string", Description: "The patient ID to retrieve"},
			"codes":      {Type: "array", Items: &domain.JSONSchemaProps{Type: "string"}},
		},
	})

	assert.True(t, s.Type.Is("object"))
	assert.Equal(t, []string{"patient_id"}, s.Required)
	if assert.Contains(t, s.Properties, "patient_id") {
		assert.Equal(t, "The patient ID to retrieve", s.Properties["patient_id"].Value.Description)
		assert.True(t, s.Properties["patient_id"].Value.Type.Is("string"))
	}
	if assert.Contains(t, s.Properties, "codes") {
		assert.True(t, s.Properties["codes"].Value.Items.Value.Type.Is("string"))
	}
}
