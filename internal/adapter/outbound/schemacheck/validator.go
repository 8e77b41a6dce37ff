package schemacheck

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cast"

	"github.com/i2y/mcpfhir/internal/domain"
)

// Validator checks tool arguments against the tool's input schema using
// kin-openapi. It implements usecase.ArgumentValidator.
type Validator struct {
	logger *slog.Logger
}

// New creates a Validator.
func New(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "schema_validator")}
}

// Validate reports the first argument that does not satisfy schema.
// Null arguments are treated as absent, and numeric strings are accepted
// for number and integer properties.
func (v *Validator) Validate(schema domain.JSONSchemaProps, args map[string]any) error {
	value := normalize(schema, args)
	if err := ToOpenAPI(schema).VisitJSON(value); err != nil {
		v.logger.Debug("Arguments rejected by schema", slog.Any("error", err))
		return describe(err)
	}
	return nil
}

// ToOpenAPI converts a tool schema into its kin-openapi form.
func ToOpenAPI(props domain.JSONSchemaProps) *openapi3.Schema {
	var s *openapi3.Schema
	switch props.Type {
	case "object":
		s = openapi3.NewObjectSchema()
		for name, p := range props.Properties {
			s.WithProperty(name, ToOpenAPI(p))
		}
		s.Required = append([]string(nil), props.Required...)
	case "string":
		s = openapi3.NewStringSchema()
	case "integer":
		s = openapi3.NewIntegerSchema()
	case "number":
		s = openapi3.NewFloat64Schema()
	case "boolean":
		s = openapi3.NewBoolSchema()
	case "array":
		s = openapi3.NewArraySchema()
		if props.Items != nil {
			s.WithItems(ToOpenAPI(*props.Items))
		}
	default:
		s = &openapi3.Schema{}
	}
	s.Description = props.Description
	if len(props.Enum) > 0 {
		s.Enum = append([]any(nil), props.Enum...)
	}
	return s
}

func normalize(schema domain.JSONSchemaProps, args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for name, value := range args {
		if value == nil {
			continue
		}
		if p, ok := schema.Properties[name]; ok && (p.Type == "integer" || p.Type == "number") {
			if s, isString := value.(string); isString {
				if f, err := cast.ToFloat64E(strings.TrimSpace(s)); err == nil {
					value = f
				}
			}
		}
		out[name] = value
	}
	return out
}

func describe(err error) error {
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if path := strings.Join(se.JSONPointer(), "."); path != "" {
			return fmt.Errorf("%s: %s", path, se.Reason)
		}
		return errors.New(se.Reason)
	}
	return err
}
