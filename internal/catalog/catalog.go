// Package catalog declares the fixed set of FHIR tools served over MCP.
package catalog

import (
	"net/http"

	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

const (
	defaultCount          = 10
	conditionPatientCount = 100
)

type entry struct {
	tool    domain.Tool
	details usecase.InvocationDetails
}

func str(description string) domain.JSONSchemaProps {
	return domain.JSONSchemaProps{Type: "string", Description: description}
}

func count(def int) domain.JSONSchemaProps {
	return domain.JSONSchemaProps{Type: "integer", Description: "Number of results", Default: def}
}

func object(props map[string]domain.JSONSchemaProps, required ...string) domain.JSONSchemaProps {
	if props == nil {
		props = map[string]domain.JSONSchemaProps{}
	}
	return domain.JSONSchemaProps{Type: "object", Properties: props, Required: required}
}

// search describes a GET search on a resource type whose query parameters
// are exactly the tool's properties.
func search(name, description, resourceType string, report domain.ReportFormat, countDefault int, props map[string]domain.JSONSchemaProps) entry {
	props["_count"] = count(countDefault)
	query := make(map[string]struct{}, len(props))
	for p := range props {
		query[p] = struct{}{}
	}
	return entry{
		tool: domain.Tool{Name: name, Description: description, InputSchema: object(props)},
		details: usecase.InvocationDetails{
			Kind:        usecase.InvocationFHIR,
			HTTPMethod:  http.MethodGet,
			HTTPPath:    resourceType,
			QueryParams: domain.SortedKeys(query),
			Defaults:    map[string]any{"_count": countDefault},
			Report:      report,
		},
	}
}

func entries() []entry {
	return []entry{
		{
			tool: domain.Tool{
				Name:        "get_patient",
				Description: "Get a specific patient by their ID",
				InputSchema: object(map[string]domain.JSONSchemaProps{
					"patient_id": str("The patient ID to retrieve"),
				}, "patient_id"),
			},
			details: usecase.InvocationDetails{
				Kind:               usecase.InvocationFHIR,
				HTTPMethod:         http.MethodGet,
				HTTPPath:           "Patient/{patient_id}",
				PathParams:         []string{"patient_id"},
				MissingArgMessages: map[string]string{"patient_id": "Patient ID is required"},
				Report:             domain.ReportPatient,
			},
		},
		search("search_patients", "Search for patients in the FHIR server", "Patient",
			domain.ReportPatientSearch, defaultCount, map[string]domain.JSONSchemaProps{
				"name":   str("Patient name"),
				"family": str("Patient family name"),
			}),
		search("search_all_patients", "Get all patients (no filters)", "Patient",
			domain.ReportAllPatients, defaultCount, map[string]domain.JSONSchemaProps{}),
		search("search_observations", "Search for observations", "Observation",
			domain.ReportObservations, defaultCount, map[string]domain.JSONSchemaProps{
				"patient": str("Patient ID"),
			}),
		{
			tool: domain.Tool{
				Name:        "get_capability_statement",
				Description: "Get FHIR server capabilities",
				InputSchema: object(nil),
			},
			details: usecase.InvocationDetails{
				Kind:       usecase.InvocationFHIR,
				HTTPMethod: http.MethodGet,
				HTTPPath:   "metadata",
				Report:     domain.ReportCapability,
			},
		},
		search("search_conditions", "Search for conditions/diagnoses (e.g., diabetes)", "Condition",
			domain.ReportConditions, defaultCount, map[string]domain.JSONSchemaProps{
				"patient":         str("Patient ID"),
				"code":            str("Condition code (e.g., SNOMED code)"),
				"clinical-status": str("Clinical status (active, resolved, etc.)"),
			}),
		search("search_medication_requests", "Search for medication requests/prescriptions (e.g., diabetes medications)", "MedicationRequest",
			domain.ReportMedicationRequests, defaultCount, map[string]domain.JSONSchemaProps{
				"patient": str("Patient ID"),
				"status":  str("Status (active, completed, etc.)"),
				"intent":  str("Intent (order, plan, etc.)"),
			}),
		search("search_diagnostic_reports", "Search for diagnostic reports (e.g., lab results, HbA1c tests)", "DiagnosticReport",
			domain.ReportDiagnosticReports, defaultCount, map[string]domain.JSONSchemaProps{
				"patient":  str("Patient ID"),
				"status":   str("Report status"),
				"category": str("Category of report"),
			}),
		search("search_care_plans", "Search for care plans (e.g., diabetes management plans)", "CarePlan",
			domain.ReportCarePlans, defaultCount, map[string]domain.JSONSchemaProps{
				"patient":  str("Patient ID"),
				"status":   str("Plan status (active, completed, etc.)"),
				"category": str("Category of care plan"),
			}),
		search("find_patients_with_conditions", "Find unique patient IDs from condition records (useful when patient records are missing)", "Condition",
			domain.ReportConditionPatients, conditionPatientCount, map[string]domain.JSONSchemaProps{
				"code": str("Condition code to filter by (optional)"),
			}),
		{
			tool: domain.Tool{
				Name:        "assess_data_quality",
				Description: "Assess the data quality and integrity of the FHIR server",
				InputSchema: object(map[string]domain.JSONSchemaProps{
					"resource_type": str("Specific resource type to assess (optional, defaults to all basic types)"),
				}),
			},
			details: usecase.InvocationDetails{Kind: usecase.InvocationAssessment},
		},
	}
}

// Tools returns the tool definitions and their invocation details. The two
// slices correspond by index, as usecase.ToolRepository.Save expects.
func Tools() ([]domain.Tool, []usecase.InvocationDetails) {
	all := entries()
	tools := make([]domain.Tool, len(all))
	details := make([]usecase.InvocationDetails, len(all))
	for i, e := range all {
		tools[i] = e.tool
		details[i] = e.details
	}
	return tools, details
}
