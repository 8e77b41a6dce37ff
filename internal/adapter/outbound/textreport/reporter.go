// Package textreport renders FHIR documents and quality assessments as the
// plain text returned to MCP clients.
package textreport

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/i2y/mcpfhir/internal/domain"
)

const (
	maxListed      = 10
	maxObservation = 5
	maxPatientIDs  = 20
)

// Reporter implements usecase.Reporter.
type Reporter struct{}

// New creates a Reporter.
func New() *Reporter {
	return &Reporter{}
}

// Render formats doc according to format. params are the tool arguments
// the document was fetched with.
func (r *Reporter) Render(format domain.ReportFormat, doc domain.Document, params map[string]any) string {
	if doc.IsOutcome() {
		return renderOutcome(format, doc, params)
	}

	var lines []string
	switch format {
	case domain.ReportPatient:
		lines = patientDetail(doc)
	case domain.ReportPatientSearch:
		lines = patientList(doc,
			fmt.Sprintf("Search completed. Found %d patients in total.", doc.Int("total", 0)),
			fmt.Sprintf("Returned %d entries in this page.", doc.Len("entry")),
			"No entries found in response")
	case domain.ReportAllPatients:
		lines = patientList(doc,
			fmt.Sprintf("Total patients in system: %d", doc.Int("total", 0)),
			fmt.Sprintf("Returned in this page: %d", doc.Len("entry")),
			"No entries found - this indicates an issue with the search")
	case domain.ReportObservations:
		lines = searchList(doc, "observations", "Observations:", "No observation entries found", maxObservation, observationLine)
	case domain.ReportConditions:
		lines = searchList(doc, "conditions", "Conditions:", "No conditions found", maxListed, conditionLine)
	case domain.ReportMedicationRequests:
		lines = searchList(doc, "medication requests", "Medication Requests:", "No medication requests found", maxListed, medicationRequestLine)
	case domain.ReportDiagnosticReports:
		lines = searchList(doc, "diagnostic reports", "Diagnostic Reports:", "No diagnostic reports found", maxListed, diagnosticReportLine)
	case domain.ReportCarePlans:
		lines = searchList(doc, "care plans", "Care Plans:", "No care plans found", maxListed, carePlanLine)
	case domain.ReportCapability:
		lines = capability(doc)
	case domain.ReportConditionPatients:
		lines = conditionPatients(doc)
	default:
		lines = []string{fmt.Sprintf("Received %s resource", doc.String("resourceType", "Unknown"))}
	}
	return strings.Join(lines, "\n")
}

// RenderAssessment formats a quality assessment with one block per category,
// the overall score and its rating.
func (r *Reporter) RenderAssessment(a domain.QualityAssessment) string {
	lines := []string{
		"FHIR Server Data Quality Assessment",
		"Server: " + a.ServerURL,
		"Timestamp: " + a.Timestamp.Format(time.RFC3339),
		"",
	}

	for _, res := range a.Resources {
		lines = append(lines,
			fmt.Sprintf("📊 %s Resource:", res.Name),
			fmt.Sprintf("  ✅ Accessible: %t", res.Accessible))

		if res.Accessible {
			lines = append(lines,
				fmt.Sprintf("  📈 Quality Score: %.1f/100", res.Score),
				fmt.Sprintf("  📋 Total Available: %d", res.TotalAvailable))
			if len(res.Issues) > 0 {
				lines = append(lines, "  ⚠️  Issues Found:")
				for _, issue := range res.Issues {
					lines = append(lines, fmt.Sprintf("    - %s: %s", strings.ToUpper(issue.Severity), issue.Details))
				}
			} else {
				lines = append(lines, "  ✅ No issues detected")
			}
		} else {
			lines = append(lines, "  ❌ Error: "+inaccessibleReason(res))
		}
		lines = append(lines, "")
	}

	if overall, ok := a.OverallScore(); ok {
		lines = append(lines,
			fmt.Sprintf("🎯 Overall Data Quality Score: %.1f/100", overall),
			ratingLine(domain.RateScore(overall)))
	}
	return strings.Join(lines, "\n")
}

func inaccessibleReason(res domain.CategoryAssessment) string {
	if res.Error != "" {
		return res.Error
	}
	if len(res.Issues) > 0 {
		details := make([]string, len(res.Issues))
		for i, issue := range res.Issues {
			details[i] = issue.Details
		}
		return strings.Join(details, "; ")
	}
	return "Unknown error"
}

func ratingLine(r domain.Rating) string {
	switch r {
	case domain.RatingExcellent:
		return "✅ EXCELLENT: This server has high-quality, well-connected data"
	case domain.RatingGood:
		return "⚠️  GOOD: This server has decent data with some issues"
	case domain.RatingFair:
		return "⚠️  FAIR: This server has significant data quality issues"
	default:
		return "❌ POOR: This server has major data quality problems"
	}
}

func renderOutcome(format domain.ReportFormat, doc domain.Document, params map[string]any) string {
	issue, _ := doc.PrimaryIssue()
	if format == domain.ReportPatient {
		if issue.Code == domain.IssueCodeNotFound {
			return fmt.Sprintf("Patient with ID %s not found", cast.ToString(params["patient_id"]))
		}
		return "Error retrieving patient: " + issue.Details
	}

	lines := []string{"FHIR server returned an error:"}
	for _, i := range doc.OutcomeIssues() {
		lines = append(lines, fmt.Sprintf("- %s [%s]: %s", strings.ToUpper(i.Severity), i.Code, i.Details))
	}
	return strings.Join(lines, "\n")
}

func humanName(res domain.Document) string {
	names := res.Objects("name")
	if len(names) == 0 {
		return "Unknown Name"
	}
	given := strings.Join(names[0].Strings("given"), " ")
	return strings.TrimSpace(given + " " + names[0].String("family", ""))
}

func patientDetail(res domain.Document) []string {
	lines := []string{
		"Patient found:",
		"ID: " + res.String("id", "Unknown"),
		"Name: " + humanName(res),
		"Date of Birth: " + res.String("birthDate", "Unknown"),
		"Gender: " + res.String("gender", "Unknown"),
	}
	if addresses := res.Objects("address"); len(addresses) > 0 {
		addr := addresses[0]
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("Location: %s, %s %s",
			addr.String("city", ""), addr.String("state", ""), addr.String("country", ""))))
	}
	for _, contact := range res.Objects("telecom") {
		switch contact.String("system", "") {
		case "phone":
			lines = append(lines, "Phone: "+contact.String("value", "Unknown"))
		case "email":
			lines = append(lines, "Email: "+contact.String("value", "Unknown"))
		}
	}
	return lines
}

func entryResources(doc domain.Document, limit int) []domain.Document {
	entries := doc.Objects("entry")
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.Document, len(entries))
	for i, e := range entries {
		out[i] = e.Object("resource")
	}
	return out
}

func patientList(doc domain.Document, header, returned, empty string) []string {
	lines := []string{header, returned}
	if doc.Len("entry") == 0 {
		return append(lines, empty)
	}
	lines = append(lines, "", "Patients found:")
	for _, res := range entryResources(doc, maxListed) {
		lines = append(lines, fmt.Sprintf("- ID: %s | Name: %s | DOB: %s | Gender: %s",
			res.String("id", "Unknown"), humanName(res),
			res.String("birthDate", "Unknown"), res.String("gender", "Unknown")))
	}
	return lines
}

func searchList(doc domain.Document, noun, title, empty string, limit int, line func(domain.Document) string) []string {
	lines := []string{
		fmt.Sprintf("Found %d %s total", doc.Int("total", 0), noun),
		fmt.Sprintf("Returned %d entries in this page", doc.Len("entry")),
	}
	if doc.Len("entry") == 0 {
		return append(lines, empty)
	}
	lines = append(lines, "", title)
	for _, res := range entryResources(doc, limit) {
		lines = append(lines, line(res))
	}
	return lines
}

// conceptText prefers text over the first coding's display.
func conceptText(concept domain.Document, fallback string) string {
	if concept == nil {
		return fallback
	}
	if concept.Has("text") {
		return concept.String("text", fallback)
	}
	if codings := concept.Objects("coding"); len(codings) > 0 {
		return codings[0].String("display", "Unknown")
	}
	return fallback
}

func observationLine(res domain.Document) string {
	value := "No value"
	if res.Has("valueString") {
		value = cast.ToString(res["valueString"])
	} else if q := res.Object("valueQuantity"); q != nil && q.Has("value") {
		value = cast.ToString(q["value"])
	}
	code := "Unknown observation"
	if c := res.Object("code"); c != nil {
		code = c.String("text", code)
	}
	return fmt.Sprintf("- ID: %s | %s | Value: %s", res.String("id", "Unknown"), code, value)
}

func conditionLine(res domain.Document) string {
	status := "Unknown"
	if cs := res.Object("clinicalStatus"); cs != nil {
		if codings := cs.Objects("coding"); len(codings) > 0 {
			status = codings[0].String("code", "Unknown")
		}
	}
	patient := "Unknown patient"
	if ref, ok := res.SubjectReference(); ok {
		patient = ref
		if id, ok := domain.ReferenceID(ref); ok {
			patient = id
		}
	}
	return fmt.Sprintf("- ID: %s | Patient: %s | %s | Status: %s | Onset: %s",
		res.String("id", "Unknown"), patient, conceptText(res.Object("code"), "Unknown condition"),
		status, res.String("onsetDateTime", "Unknown onset"))
}

func medicationRequestLine(res domain.Document) string {
	return fmt.Sprintf("- ID: %s | %s | Status: %s | Intent: %s | Date: %s",
		res.String("id", "Unknown"),
		conceptText(res.Object("medicationCodeableConcept"), "Unknown medication"),
		res.String("status", "Unknown"), res.String("intent", "Unknown"),
		res.String("authoredOn", "Unknown date"))
}

func diagnosticReportLine(res domain.Document) string {
	category := "Unknown category"
	if cats := res.Objects("category"); len(cats) > 0 {
		if codings := cats[0].Objects("coding"); len(codings) > 0 {
			category = codings[0].String("display", "Unknown")
		}
	}
	return fmt.Sprintf("- ID: %s | %s | Category: %s | Status: %s | Date: %s",
		res.String("id", "Unknown"), conceptText(res.Object("code"), "Unknown report"),
		category, res.String("status", "Unknown"), res.String("effectiveDateTime", "Unknown date"))
}

func carePlanLine(res domain.Document) string {
	category := "Unknown category"
	if cats := res.Objects("category"); len(cats) > 0 {
		category = conceptText(cats[0], category)
	}
	return fmt.Sprintf("- ID: %s | %s | Category: %s | Status: %s | Intent: %s | Created: %s",
		res.String("id", "Unknown"), res.String("title", "Untitled plan"), category,
		res.String("status", "Unknown"), res.String("intent", "Unknown"),
		res.String("created", "Unknown date"))
}

func capability(doc domain.Document) []string {
	lines := []string{
		"FHIR Version: " + doc.String("fhirVersion", "Unknown"),
		"Publisher: " + doc.String("publisher", "Unknown"),
	}
	if doc.Has("rest") {
		rest := doc.Objects("rest")
		lines = append(lines, fmt.Sprintf("REST endpoints: %d", doc.Len("rest")))
		for _, r := range rest {
			if r.Has("resource") {
				lines = append(lines, fmt.Sprintf("Supported resources: %d", r.Len("resource")))
				break
			}
		}
	}
	return lines
}

func conditionPatients(doc domain.Document) []string {
	ids := make(map[string]struct{})
	for _, res := range doc.Entries() {
		if ref, ok := res.SubjectReference(); ok {
			if id, ok := domain.ReferenceID(ref); ok {
				ids[id] = struct{}{}
			}
		}
	}
	sorted := domain.SortedKeys(ids)

	lines := []string{fmt.Sprintf("Found %d unique patients with conditions", len(sorted))}
	if len(sorted) == 0 {
		return append(lines, "No patient IDs found in condition records")
	}
	lines = append(lines, "", "Patient IDs:")
	shown := sorted
	if len(shown) > maxPatientIDs {
		shown = shown[:maxPatientIDs]
	}
	for _, id := range shown {
		lines = append(lines, "- "+id)
	}
	if len(sorted) > maxPatientIDs {
		lines = append(lines, fmt.Sprintf("... and %d more", len(sorted)-maxPatientIDs))
	}
	return lines
}
