package mcphttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/i2y/mcpfhir/internal/domain"
	"github.com/i2y/mcpfhir/internal/usecase"
)

// Handlers serves the admin endpoints that run next to the SSE transport.
type Handlers struct {
	serveToolsUseCase *usecase.ServeToolsUseCase
	assessor          usecase.Assessor
	logger            *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	serveUC *usecase.ServeToolsUseCase,
	assessor usecase.Assessor,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		serveToolsUseCase: serveUC,
		assessor:          assessor,
		logger:            logger.With("component", "mcphttp_handler"),
	}
}

// Routes builds the admin router.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		render.SetContentType(render.ContentTypeJSON),
	)
	r.Get("/healthz", h.handleHealth)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/tools", h.handleListTools)
		r.Get("/assessment", h.handleAssessment)
	})
	return r
}

// AssessmentResponse is the JSON body of GET /admin/assessment.
type AssessmentResponse struct {
	domain.QualityAssessment
	OverallScore *float64      `json:"overall_score,omitempty"`
	Rating       domain.Rating `json:"rating,omitempty"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.serveToolsUseCase.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools", slog.Any("error", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	render.JSON(w, r, tools)
}

func (h *Handlers) handleAssessment(w http.ResponseWriter, r *http.Request) {
	var categories []string
	if rt := strings.TrimSpace(r.URL.Query().Get("resource_type")); rt != "" {
		categories = []string{rt}
	}
	h.logger.Info("Running data quality assessment",
		slog.Any("categories", categories),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	assessment := h.assessor.Execute(r.Context(), categories)
	resp := AssessmentResponse{QualityAssessment: assessment}
	if score, ok := assessment.OverallScore(); ok {
		resp.OverallScore = &score
		resp.Rating = domain.RateScore(score)
	}
	render.JSON(w, r, resp)
}
