// Package mcp provides the MCP server implementation.
// This file contains the lightweight server that requires no external databases.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/app"
	"github.com/maternal-risk-advisor/internal/audit"
	litecfg "github.com/maternal-risk-advisor/internal/config"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/service"
)

// ServerName and ServerVersion identify the server to MCP clients
const (
	ServerName    = "maternal-risk-advisor-lite"
	ServerVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It loads the model artifacts from the data directory and records safety
// events in SQLite.
type LiteServer struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	advisor   *service.AdvisorService
	recorder  *audit.Recorder
	logger    *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// WithRecorder sets a custom safety event recorder.
func WithRecorder(recorder *audit.Recorder) LiteServerOption {
	return func(s *LiteServer) error {
		s.recorder = recorder
		return nil
	}
}

// WithAdvisor sets a prebuilt advisor; the model artifacts are not loaded.
func WithAdvisor(advisor *service.AdvisorService) LiteServerOption {
	return func(s *LiteServer) error {
		if advisor == nil {
			return fmt.Errorf("advisor cannot be nil")
		}
		s.advisor = advisor
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: app.NewLogger(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.advisor == nil {
		if err := server.buildAdvisor(); err != nil {
			server.Close()
			return nil, err
		}
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	server.mcpServer = mcpServer
	server.registerTools(mcpServer)

	server.logger.WithFields(logrus.Fields{
		"schema":     server.advisor.Engine().Schema().Name,
		"classifier": server.advisor.ClassifierName(),
		"audit":      server.recorder != nil,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// buildAdvisor loads the engine and classifier described by the lite config
func (s *LiteServer) buildAdvisor() error {
	if err := s.config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if s.recorder == nil && s.config.AuditEnabled {
		store, err := audit.NewSQLiteStore(s.config.AuditDBPath())
		if err != nil {
			return fmt.Errorf("failed to create audit store: %w", err)
		}
		s.recorder = audit.NewRecorder(store, nil, s.logger)
	}

	var sink domain.SafetyEventSink
	if s.recorder != nil {
		sink = s.recorder
	}

	advisor, err := app.NewAdvisor(s.config.AdvisorConfig(), s.config.ClassifierConfig(), sink, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create advisor: %w", err)
	}
	s.advisor = advisor.Service
	return nil
}

// registerTools registers every advisor tool with the MCP SDK.
func (s *LiteServer) registerTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        ToolAssessRisk,
		Description: "Assess maternal health risk for one patient record: classifier risk label, reason and threshold-based recommendations",
	}, s.handleAssessRisk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        ToolEvaluateThresholds,
		Description: "Evaluate a patient record against the clinical threshold rules only, without the risk classifier",
	}, s.handleEvaluateThresholds)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        ToolListThresholds,
		Description: "List the clinical threshold bands and advisory messages of the active schema",
	}, s.handleListThresholds)

	count := 3
	if s.recorder != nil && s.recorder.Store() != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        ToolListSafetyEvents,
			Description: "List recorded safety events (overridden reasons and unrecognized labels), newest first",
		}, s.handleListSafetyEvents)
		count++
	}

	s.logger.WithField("tool_count", count).Info("Successfully registered all tools")
}

// Start runs the MCP server on stdio until ctx is cancelled or the client disconnects.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting Maternal Risk Advisor MCP Server (Lite)...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close safety event recorder")
		}
	}
	return nil
}

// Advisor returns the advisor behind the tools.
func (s *LiteServer) Advisor() *service.AdvisorService {
	return s.advisor
}
