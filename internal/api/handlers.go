package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/audit"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/middleware"
)

// maxListLimit caps one page of the safety event listing.
const maxListLimit = 500

// AssessErrorResponse is returned when the classifier fails. The threshold
// recommendation is still included so it can be shown.
type AssessErrorResponse struct {
	Error    *domain.APIError      `json:"error"`
	Advisory *domain.FinalAdvisory `json:"advisory,omitempty"`
}

// RecommendationResponse is the rules-only result.
type RecommendationResponse struct {
	Schema         string                `json:"schema"`
	Recommendation domain.Recommendation `json:"recommendation"`
}

// SafetyEventsResponse is one page of the audit trail.
type SafetyEventsResponse struct {
	Events []domain.SafetyEvent `json:"events"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// handleHealth reports the advisor configuration and dependency health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, checker := range s.deps.Checks {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":          status,
		"timestamp":       time.Now().UTC(),
		"version":         Version,
		"schema":          s.deps.Advisor.Engine().Schema().Name,
		"classifier":      s.deps.Advisor.ClassifierName(),
		"classifier_mode": s.deps.ClassifierMode,
		"audit_enabled":   s.deps.Events != nil,
		"checks":          checks,
	})
}

// handleAssess runs a full assessment of one record
func (s *Server) handleAssess(c *gin.Context) {
	requestID := middleware.GetCorrelationID(c)

	record, apiErr := s.bindRecord(c, requestID)
	if apiErr != nil {
		c.JSON(http.StatusBadRequest, apiErr)
		return
	}

	advisory, err := s.deps.Advisor.Assess(c.Request.Context(), record, requestID)
	if err != nil {
		status, body := s.assessError(err, advisory, requestID)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, advisory)
}

// handleRecommendations runs the threshold rules only
func (s *Server) handleRecommendations(c *gin.Context) {
	requestID := middleware.GetCorrelationID(c)

	record, apiErr := s.bindRecord(c, requestID)
	if apiErr != nil {
		c.JSON(http.StatusBadRequest, apiErr)
		return
	}

	c.JSON(http.StatusOK, RecommendationResponse{
		Schema:         s.deps.Advisor.Engine().Schema().Name,
		Recommendation: s.deps.Advisor.Recommend(record),
	})
}

// handleThresholds lists the active schema's bands
func (s *Server) handleThresholds(c *gin.Context) {
	engine := s.deps.Advisor.Engine()
	c.JSON(http.StatusOK, gin.H{
		"schema":   engine.Schema().Name,
		"features": engine.Thresholds(),
	})
}

// handleSafetyEvents lists recorded safety events newest first
func (s *Server) handleSafetyEvents(c *gin.Context) {
	requestID := middleware.GetCorrelationID(c)

	if s.deps.Events == nil {
		c.JSON(http.StatusNotFound, domain.NewAPIError(
			domain.ErrInvalidInput, "Safety event auditing is disabled", "", requestID))
		return
	}

	limit, err := queryInt(c, "limit", audit.DefaultListLimit)
	if err != nil || limit <= 0 || limit > maxListLimit {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrValidation, "Invalid limit", "limit must be between 1 and 500", requestID))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrValidation, "Invalid offset", "offset must be zero or positive", requestID))
		return
	}

	ctx := c.Request.Context()
	events, err := s.deps.Events.List(ctx, audit.Filter{
		Type:      domain.SafetyEventType(c.Query("type")),
		RequestID: c.Query("request_id"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		s.internalError(c, err, requestID)
		return
	}
	total, err := s.deps.Events.Count(ctx)
	if err != nil {
		s.internalError(c, err, requestID)
		return
	}

	if events == nil {
		events = []domain.SafetyEvent{}
	}
	c.JSON(http.StatusOK, SafetyEventsResponse{
		Events: events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// bindRecord decodes and validates the request body
func (s *Server) bindRecord(c *gin.Context, requestID string) (domain.PatientRecord, *domain.APIError) {
	var record domain.PatientRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return record, domain.NewAPIError(domain.ErrValidation, "Invalid measurement", validationErr.Error(), requestID)
		}
		return record, domain.NewAPIError(domain.ErrInvalidInput, "Invalid request body", err.Error(), requestID)
	}

	if err := s.validateRecord(record); err != nil {
		return record, domain.NewAPIError(domain.ErrValidation, "Invalid patient record", err.Error(), requestID)
	}
	return record, nil
}

// validateRecord requires at least one measurement the schema evaluates
func (s *Server) validateRecord(record domain.PatientRecord) error {
	for _, feature := range s.deps.Advisor.Engine().Schema().Features {
		if record.Has(feature) {
			return nil
		}
	}
	return domain.NewValidationError("record", "no measurement of the active schema is present", record.Features())
}

// assessError maps an assessment failure onto a status and body
func (s *Server) assessError(err error, advisory *domain.FinalAdvisory, requestID string) (int, AssessErrorResponse) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, AssessErrorResponse{
			Error:    domain.NewAPIError(domain.ErrClassifier, "Risk classifier timed out", err.Error(), requestID),
			Advisory: advisory,
		}
	case errors.Is(err, domain.ErrClassifierUnavailable), errors.Is(err, domain.ErrUnknownRiskClass):
		return http.StatusBadGateway, AssessErrorResponse{
			Error:    domain.NewAPIError(domain.ErrClassifier, "Risk classifier failed", err.Error(), requestID),
			Advisory: advisory,
		}
	default:
		s.logger.WithError(err).WithField("request_id", requestID).Error("Assessment failed")
		return http.StatusInternalServerError, AssessErrorResponse{
			Error:    domain.NewAPIError(domain.ErrInternalServer, "Assessment failed", "", requestID),
			Advisory: advisory,
		}
	}
}

func (s *Server) internalError(c *gin.Context, err error, requestID string) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID,
		"path":       c.FullPath(),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, domain.NewAPIError(
		domain.ErrInternalServer, "Internal server error", "", requestID))
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
