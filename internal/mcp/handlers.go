package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/audit"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/service"
)

// Tool names
const (
	ToolAssessRisk         = "assess_maternal_risk"
	ToolEvaluateThresholds = "evaluate_thresholds"
	ToolListThresholds     = "list_thresholds"
	ToolListSafetyEvents   = "list_safety_events"
)

// AssessRiskParams defines parameters for assess_maternal_risk tool
type AssessRiskParams struct {
	Record    map[string]*float64 `json:"record" jsonschema:"measurements keyed by feature name, e.g. SystolicBP; null or omitted values are missing"`
	RequestID string              `json:"request_id,omitempty" jsonschema:"optional correlation identifier"`
}

// RecommendationParams defines parameters for evaluate_thresholds tool
type RecommendationParams struct {
	Record map[string]*float64 `json:"record" jsonschema:"measurements keyed by feature name, e.g. BS; null or omitted values are missing"`
}

// ListThresholdsParams defines parameters for list_thresholds tool
type ListThresholdsParams struct {
	Feature string `json:"feature,omitempty" jsonschema:"optional feature name to list alone"`
}

// ListSafetyEventsParams defines parameters for list_safety_events tool
type ListSafetyEventsParams struct {
	Type      string `json:"type,omitempty" jsonschema:"event type filter: LABEL_REASON_CONTRADICTION, UNMAPPED_REASON_INDEX or UNRECOGNIZED_RISK_LABEL"`
	RequestID string `json:"request_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// RecommendationResult defines the result structure for evaluate_thresholds tool
type RecommendationResult struct {
	Schema         string                `json:"schema"`
	Recommendation domain.Recommendation `json:"recommendation"`
	Summary        string                `json:"summary"`
}

// ThresholdsResult defines the result structure for list_thresholds tool
type ThresholdsResult struct {
	Schema   string                  `json:"schema"`
	Features []service.ThresholdView `json:"features"`
}

// AssessFailure is returned when the classifier fails; the rule-engine
// recommendation is still included.
type AssessFailure struct {
	Error    string                `json:"error"`
	Advisory *domain.FinalAdvisory `json:"advisory,omitempty"`
}

// handleAssessRisk handles the assess_maternal_risk tool invocation
func (s *LiteServer) handleAssessRisk(ctx context.Context, req *mcp.CallToolRequest, params AssessRiskParams) (*mcp.CallToolResult, any, error) {
	requestID := params.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	s.logger.WithFields(logrus.Fields{
		"tool":       ToolAssessRisk,
		"request_id": requestID,
	}).Info("Tool invoked")

	record, err := s.recordFromParams(params.Record)
	if err != nil {
		return s.createErrorResult("Invalid patient record", err), nil, nil
	}

	advisory, err := s.advisor.Assess(ctx, record, requestID)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Warn("Assessment failed")
		if advisory == nil {
			return s.createErrorResult("Assessment failed", err), nil, nil
		}
		result, jsonErr := s.createJSONResult(AssessFailure{Error: err.Error(), Advisory: advisory})
		if jsonErr != nil {
			return s.createErrorResult("Failed to encode result", jsonErr), nil, nil
		}
		result.IsError = true
		return result, nil, nil
	}

	result, err := s.createJSONResult(advisory)
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return result, nil, nil
}

// handleEvaluateThresholds handles the evaluate_thresholds tool invocation
func (s *LiteServer) handleEvaluateThresholds(ctx context.Context, req *mcp.CallToolRequest, params RecommendationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolEvaluateThresholds).Info("Tool invoked")

	record, err := s.recordFromParams(params.Record)
	if err != nil {
		return s.createErrorResult("Invalid patient record", err), nil, nil
	}

	rec := s.advisor.Recommend(record)
	result, err := s.createJSONResult(RecommendationResult{
		Schema:         s.advisor.Engine().Schema().Name,
		Recommendation: rec,
		Summary:        rec.String(),
	})
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return result, nil, nil
}

// handleListThresholds handles the list_thresholds tool invocation
func (s *LiteServer) handleListThresholds(ctx context.Context, req *mcp.CallToolRequest, params ListThresholdsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListThresholds).Info("Tool invoked")

	engine := s.advisor.Engine()
	views := engine.Thresholds()
	if params.Feature != "" {
		var selected []service.ThresholdView
		for _, view := range views {
			if string(view.Feature) == params.Feature {
				selected = append(selected, view)
			}
		}
		if len(selected) == 0 {
			return s.createErrorResult("Unknown feature",
				fmt.Errorf("%w: %s is not part of schema %s", domain.ErrUnknownFeature, params.Feature, engine.Schema().Name)), nil, nil
		}
		views = selected
	}

	result, err := s.createJSONResult(ThresholdsResult{Schema: engine.Schema().Name, Features: views})
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return result, nil, nil
}

// handleListSafetyEvents handles the list_safety_events tool invocation
func (s *LiteServer) handleListSafetyEvents(ctx context.Context, req *mcp.CallToolRequest, params ListSafetyEventsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListSafetyEvents).Info("Tool invoked")

	if s.recorder == nil || s.recorder.Store() == nil {
		return s.createErrorResult("Safety event auditing is disabled", nil), nil, nil
	}
	if params.Limit < 0 || params.Offset < 0 {
		return s.createErrorResult("Invalid parameters", errors.New("limit and offset must be zero or positive")), nil, nil
	}

	events, err := s.recorder.Store().List(ctx, audit.Filter{
		Type:      domain.SafetyEventType(params.Type),
		RequestID: params.RequestID,
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		return s.createErrorResult("Failed to list safety events", err), nil, nil
	}
	if events == nil {
		events = []domain.SafetyEvent{}
	}

	result, err := s.createJSONResult(events)
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return result, nil, nil
}

// recordFromParams builds a patient record and requires one schema measurement
func (s *LiteServer) recordFromParams(raw map[string]*float64) (domain.PatientRecord, error) {
	values := make(map[domain.Feature]*float64, len(raw))
	for name, v := range raw {
		values[domain.Feature(name)] = v
	}
	record := domain.RecordFromOptional(values)

	for _, feature := range s.advisor.Engine().Schema().Features {
		if record.Has(feature) {
			return record, nil
		}
	}
	return record, domain.NewValidationError("record", "no measurement of the active schema is present", record.Features())
}

func (s *LiteServer) createJSONResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

// createErrorResult creates an error result for tool calls
func (s *LiteServer) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
