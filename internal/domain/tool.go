package domain

// Tool represents a callable function exposed over the Model Context Protocol (MCP).
type Tool struct {
	// Name is the snake_case tool name. It MUST be unique within the MCP server.
	Name string `json:"name"`

	// Description provides a natural language explanation of what the tool does.
	// This is crucial for the LLM to understand when to use the tool.
	Description string `json:"description"`

	// InputSchema defines the structure of the arguments the tool expects.
	// Uses JSON Schema format.
	InputSchema JSONSchemaProps `json:"input_schema"`
}

// JSONSchemaProps represents the properties of a JSON schema,
// commonly used for input definitions in MCP tools.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`                  // e.g., "object", "string", "integer"
	Description string                     `json:"description,omitempty"` // Shown to the client
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`  // For type "object"
	Required    []string                   `json:"required,omitempty"`    // For type "object"
	Items       *JSONSchemaProps           `json:"items,omitempty"`       // For type "array"
	Enum        []any                      `json:"enum,omitempty"`        // Possible values
	Default     any                        `json:"default,omitempty"`
}

// ReportFormat selects how a gateway document is rendered as text.
type ReportFormat string

const (
	ReportPatient            ReportFormat = "patient"
	ReportPatientSearch      ReportFormat = "patient_search"
	ReportAllPatients        ReportFormat = "all_patients"
	ReportObservations       ReportFormat = "observations"
	ReportCapability         ReportFormat = "capability"
	ReportConditions         ReportFormat = "conditions"
	ReportMedicationRequests ReportFormat = "medication_requests"
	ReportDiagnosticReports  ReportFormat = "diagnostic_reports"
	ReportCarePlans          ReportFormat = "care_plans"
	ReportConditionPatients  ReportFormat = "condition_patients"
)
