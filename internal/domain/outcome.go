package domain

// Issue severities used by OperationOutcome documents.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue codes produced by the gateway and the quality assessor.
const (
	IssueCodeNotFound           = "not-found"
	IssueCodeSecurity           = "security"
	IssueCodeForbidden          = "forbidden"
	IssueCodeException          = "exception"
	IssueCodeInvalid            = "invalid"
	IssueCodeTimeout            = "timeout"
	IssueCodeOrphanedReferences = "orphaned-references"
)

// Issue is one flattened OperationOutcome issue.
type Issue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Details  string `json:"details"`
}

// NewOutcome builds an OperationOutcome document with one primary issue and
// any number of secondary ones.
func NewOutcome(severity, code, text string, secondary ...Issue) Document {
	issues := make([]any, 0, 1+len(secondary))
	issues = append(issues, outcomeIssue(severity, code, text))
	for _, issue := range secondary {
		issues = append(issues, outcomeIssue(issue.Severity, issue.Code, issue.Details))
	}
	return Document{
		"resourceType": ResourceTypeOperationOutcome,
		"issue":        issues,
	}
}

func outcomeIssue(severity, code, text string) map[string]any {
	return map[string]any{
		"severity": severity,
		"code":     code,
		"details":  map[string]any{"text": text},
	}
}

// IsOutcome reports whether the document is an OperationOutcome.
func (d Document) IsOutcome() bool {
	return d.ResourceType() == ResourceTypeOperationOutcome
}

// OutcomeIssues flattens the issues of an OperationOutcome, defaulting
// missing fields to "unknown" and "No details".
func (d Document) OutcomeIssues() []Issue {
	raw := d.Objects("issue")
	issues := make([]Issue, 0, len(raw))
	for _, issue := range raw {
		details := "No details"
		if det := issue.Object("details"); det != nil {
			details = det.String("text", details)
		}
		issues = append(issues, Issue{
			Severity: issue.String("severity", "unknown"),
			Code:     issue.String("code", "unknown"),
			Details:  details,
		})
	}
	return issues
}

// PrimaryIssue returns the first issue of an OperationOutcome.
func (d Document) PrimaryIssue() (Issue, bool) {
	issues := d.OutcomeIssues()
	if len(issues) == 0 {
		return Issue{}, false
	}
	return issues[0], true
}
