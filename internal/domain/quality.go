package domain

import "time"

// DataQuality summarises the shape of a search result Bundle.
type DataQuality struct {
	TotalResources      int      `json:"total_resources"`
	ReturnedResources   int      `json:"returned_resources"`
	HasNextPage         bool     `json:"has_next_page"`
	ResourceTypes       []string `json:"resource_types"`
	OrphanedPatientRefs int      `json:"orphaned_patient_refs,omitempty"`
}

// ValidationResult is the outcome of inspecting one gateway document.
type ValidationResult struct {
	IsValid      bool        `json:"is_valid"`
	Issues       []Issue     `json:"issues"`
	DataQuality  DataQuality `json:"data_quality"`
	ResourceType string      `json:"resource_type"`
}

// CategoryAssessment is the assessment of a single resource category.
type CategoryAssessment struct {
	Name           string  `json:"name"`
	Accessible     bool    `json:"accessible"`
	TotalAvailable int     `json:"total_available"`
	Issues         []Issue `json:"issues"`
	Score          float64 `json:"data_quality_score"`
	Error          string  `json:"error,omitempty"`
}

// QualityAssessment is the result of one assessment run. Resources keeps
// the order in which categories were requested.
type QualityAssessment struct {
	ServerURL string               `json:"server_url"`
	Timestamp time.Time            `json:"timestamp"`
	Resources []CategoryAssessment `json:"resource_assessments"`
}

// OverallScore averages the scores of accessible categories. Inaccessible
// categories are left out of the denominator; ok is false when no category
// was accessible.
func (a QualityAssessment) OverallScore() (score float64, ok bool) {
	var sum float64
	var n int
	for _, r := range a.Resources {
		if !r.Accessible {
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Rating buckets an overall score.
type Rating string

const (
	RatingExcellent Rating = "EXCELLENT"
	RatingGood      Rating = "GOOD"
	RatingFair      Rating = "FAIR"
	RatingPoor      Rating = "POOR"
)

// RateScore maps a 0-100 score to a Rating.
func RateScore(score float64) Rating {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingPoor
	}
}
