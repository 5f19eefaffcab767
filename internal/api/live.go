package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/middleware"
)

const (
	liveMaxMessageSize = 64 * 1024
	liveIdleTimeout    = 5 * time.Minute
	liveWriteTimeout   = 10 * time.Second
)

// LiveReply is one frame sent back on the live channel. Exactly one of
// Advisory and Error is set unless the classifier failed, in which case both
// are set and Advisory carries the threshold recommendation only.
type LiveReply struct {
	Sequence int                   `json:"sequence"`
	Advisory *domain.FinalAdvisory `json:"advisory,omitempty"`
	Error    *domain.APIError      `json:"error,omitempty"`
}

// handleAssessLive upgrades to a WebSocket and assesses every record frame.
// Each form change on the client sends the whole record again.
func (s *Server) handleAssessLive(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := middleware.GetCorrelationID(c)
	// The live session outlives the per-request timeout
	ctx := c.Request.Context()
	if s.config.Server.RequestTimeout > 0 {
		ctx = context.WithoutCancel(ctx)
	}
	conn.SetReadLimit(liveMaxMessageSize)

	s.logger.WithField("session_id", sessionID).Info("Live assessment session opened")

	for sequence := 1; ; sequence++ {
		conn.SetReadDeadline(time.Now().Add(liveIdleTimeout))
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).WithField("session_id", sessionID).Warn("Live assessment session closed unexpectedly")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		requestID := fmt.Sprintf("%s-%d", sessionID, sequence)
		reply := LiveReply{Sequence: sequence}

		var record domain.PatientRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			code := domain.ErrInvalidInput
			var validationErr *domain.ValidationError
			if errors.As(err, &validationErr) {
				code = domain.ErrValidation
			}
			reply.Error = domain.NewAPIError(code, "Invalid patient record", err.Error(), requestID)
		} else if err := s.validateRecord(record); err != nil {
			reply.Error = domain.NewAPIError(domain.ErrValidation, "Invalid patient record", err.Error(), requestID)
		} else {
			advisory, err := s.deps.Advisor.Assess(ctx, record, requestID)
			reply.Advisory = advisory
			if err != nil {
				_, body := s.assessError(err, advisory, requestID)
				reply.Error = body.Error
			}
		}

		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to write live reply")
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
	}).Info("Live assessment session ended")
}
