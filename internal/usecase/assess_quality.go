package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/i2y/mcpfhir/internal/domain"
)

// DefaultCategories are assessed, in this order, when no category is given.
var DefaultCategories = []string{"Patient", "Observation", "Condition", "MedicationRequest"}

const (
	// DefaultSampleSize is the _count requested per category.
	DefaultSampleSize = 10

	errorDeduction       = 30.0
	warningDeduction     = 10.0
	orphanedRefDeduction = 20.0
	emptyTotalDeduction  = 50.0
)

// Validate inspects a gateway document.
//
// OperationOutcome documents are invalid and carry their issues. Bundles are
// valid; their totals, paging and resource types are recorded and patient
// references are checked against the Patient entries of the same Bundle.
// Any other document is valid with no quality data.
func Validate(doc domain.Document) domain.ValidationResult {
	result := domain.ValidationResult{
		IsValid:      true,
		Issues:       []domain.Issue{},
		ResourceType: doc.String("resourceType", "Unknown"),
	}

	switch doc.ResourceType() {
	case domain.ResourceTypeOperationOutcome:
		result.IsValid = false
		result.Issues = append(result.Issues, doc.OutcomeIssues()...)
		return result

	case domain.ResourceTypeBundle:
		types := make(map[string]struct{})
		referenced := make(map[string]struct{})
		patients := make(map[string]struct{})

		for _, res := range doc.Entries() {
			rt := res.ResourceType()
			if rt != "" {
				types[rt] = struct{}{}
			}
			if rt == domain.ResourceTypePatient {
				patients[res.String("id", "")] = struct{}{}
				continue
			}
			if ref, ok := res.SubjectReference(); ok {
				if id, ok := domain.ReferenceID(ref); ok {
					referenced[id] = struct{}{}
				}
			}
		}

		result.DataQuality = domain.DataQuality{
			TotalResources:    doc.Int("total", 0),
			ReturnedResources: doc.Len("entry"),
			HasNextPage:       doc.HasLink("next"),
			ResourceTypes:     domain.SortedKeys(types),
		}

		// Orphan detection only applies when the Bundle holds both sides.
		if len(referenced) > 0 && len(patients) > 0 {
			orphaned := 0
			for id := range referenced {
				if _, ok := patients[id]; !ok {
					orphaned++
				}
			}
			if orphaned > 0 {
				result.Issues = append(result.Issues, domain.Issue{
					Severity: domain.SeverityWarning,
					Code:     domain.IssueCodeOrphanedReferences,
					Details:  fmt.Sprintf("Found %d orphaned patient references", orphaned),
				})
				result.DataQuality.OrphanedPatientRefs = orphaned
			}
		}
	}

	return result
}

// Score converts a ValidationResult into a 0-100 quality score.
func Score(v domain.ValidationResult) float64 {
	if !v.IsValid {
		return 0.0
	}

	score := 100.0
	for _, issue := range v.Issues {
		switch issue.Severity {
		case domain.SeverityError:
			score -= errorDeduction
		case domain.SeverityWarning:
			score -= warningDeduction
		}
	}
	if v.DataQuality.OrphanedPatientRefs > 0 {
		score -= orphanedRefDeduction
	}
	if v.DataQuality.TotalResources == 0 {
		score -= emptyTotalDeduction
	}

	if score < 0 {
		return 0.0
	}
	return score
}

// AssessmentConfig configures AssessQualityUseCase.
type AssessmentConfig struct {
	// ServerURL is reported in the assessment.
	ServerURL string
	// Categories overrides DefaultCategories.
	Categories []string
	// SampleSize is the _count requested per category.
	SampleSize int
	// Workers bounds how many categories are fetched at once.
	Workers int
}

// AssessQualityUseCase samples resource categories from the FHIR server and
// scores the returned documents.
type AssessQualityUseCase struct {
	gateway    Gateway
	serverURL  string
	categories []string
	sampleSize int
	workers    int
	now        func() time.Time
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewAssessQualityUseCase creates a new AssessQualityUseCase.
func NewAssessQualityUseCase(gateway Gateway, cfg AssessmentConfig, logger *slog.Logger) *AssessQualityUseCase {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &AssessQualityUseCase{
		gateway:    gateway,
		serverURL:  cfg.ServerURL,
		categories: categories,
		sampleSize: sampleSize,
		workers:    workers,
		now:        time.Now,
		tracer:     otel.Tracer("github.com/i2y/mcpfhir/internal/usecase"),
		logger:     logger.With("usecase", "AssessQuality"),
	}
}

// WithClock replaces the timestamp source. Used by tests.
func (uc *AssessQualityUseCase) WithClock(now func() time.Time) *AssessQualityUseCase {
	uc.now = now
	return uc
}

// Execute assesses the given categories, or the configured defaults when
// none are given. A failing category never aborts the others, and results
// keep the requested order regardless of the worker count.
func (uc *AssessQualityUseCase) Execute(ctx context.Context, categories []string) domain.QualityAssessment {
	if len(categories) == 0 {
		categories = uc.categories
	}

	ctx, span := uc.tracer.Start(ctx, "quality.assess",
		trace.WithAttributes(attribute.StringSlice("fhir.categories", categories)))
	defer span.End()

	uc.logger.Info("Starting data quality assessment",
		slog.Any("categories", categories), slog.Int("workers", uc.workers))

	assessment := domain.QualityAssessment{
		ServerURL: uc.serverURL,
		Timestamp: uc.now(),
		Resources: make([]domain.CategoryAssessment, len(categories)),
	}

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, category := range categories {
		g.Go(func() error {
			assessment.Resources[i] = uc.assessCategory(ctx, category)
			return nil
		})
	}
	_ = g.Wait()

	if overall, ok := assessment.OverallScore(); ok {
		span.SetAttributes(attribute.Float64("quality.overall_score", overall))
		uc.logger.Info("Data quality assessment finished", slog.Float64("overall_score", overall))
	} else {
		uc.logger.Warn("Data quality assessment finished with no accessible categories")
	}
	return assessment
}

func (uc *AssessQualityUseCase) assessCategory(ctx context.Context, category string) domain.CategoryAssessment {
	log := uc.logger.With(slog.String("category", category))
	ctx, span := uc.tracer.Start(ctx, "quality.assess_category",
		trace.WithAttributes(attribute.String("fhir.category", category)))
	defer span.End()

	query := url.Values{"_count": []string{strconv.Itoa(uc.sampleSize)}}
	doc, err := uc.gateway.Request(ctx, http.MethodGet, category, query)
	if err != nil {
		log.Error("Category request failed", slog.Any("error", err))
		span.RecordError(err)
		return domain.CategoryAssessment{
			Name:   category,
			Issues: []domain.Issue{},
			Score:  0,
			Error:  err.Error(),
		}
	}

	validation := Validate(doc)
	result := domain.CategoryAssessment{
		Name:           category,
		Accessible:     validation.IsValid,
		TotalAvailable: validation.DataQuality.TotalResources,
		Issues:         validation.Issues,
		Score:          Score(validation),
	}
	span.SetAttributes(
		attribute.Bool("quality.accessible", result.Accessible),
		attribute.Float64("quality.score", result.Score),
	)
	log.Debug("Category assessed",
		slog.Bool("accessible", result.Accessible),
		slog.Int("total_available", result.TotalAvailable),
		slog.Float64("score", result.Score),
		slog.Int("issue_count", len(result.Issues)))
	return result
}
