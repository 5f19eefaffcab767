// Package app assembles an advisor from configuration for the server binaries.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/audit"
	"github.com/maternal-risk-advisor/internal/classifier"
	"github.com/maternal-risk-advisor/internal/config"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/service"
	"github.com/maternal-risk-advisor/pkg/external"
)

// Advisor is an assembled advisor with the health checks of its dependencies.
type Advisor struct {
	Service        *service.AdvisorService
	ClassifierMode string
	Checks         map[string]domain.HealthChecker
}

// NewLogger creates a logger writing to stderr. Unknown levels fall back to info.
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if strings.ToLower(format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// NewEngine builds the rule engine of the configured schema, loading the
// reason table when the schema needs one.
func NewEngine(cfg domain.AdvisorConfig, logger *logrus.Logger) (*service.Engine, error) {
	schema, err := service.SchemaByName(cfg.Schema)
	if err != nil {
		return nil, err
	}

	var reasons service.ReasonLookup
	if schema.UsesReasons() {
		table, err := classifier.LoadReasonTable(cfg.ReasonsPath)
		if err != nil {
			return nil, fmt.Errorf("loading reason table: %w", err)
		}
		reasons = table
		logger.WithFields(logrus.Fields{
			"path":    cfg.ReasonsPath,
			"reasons": table.Len(),
		}).Info("Loaded reason table")
	}

	return service.NewEngine(schema, reasons, logger)
}

// NewAdvisor wires the engine, classifier and safety event sink. sink may be nil.
func NewAdvisor(
	advisorCfg domain.AdvisorConfig,
	classifierCfg domain.ClassifierConfig,
	sink domain.SafetyEventSink,
	logger *logrus.Logger,
) (*Advisor, error) {
	engine, err := NewEngine(advisorCfg, logger)
	if err != nil {
		return nil, err
	}

	checks := make(map[string]domain.HealthChecker)

	var (
		model   classifier.Classifier
		aligner service.Aligner
	)

	switch classifierCfg.Mode {
	case config.ClassifierLocal, "":
		local, err := classifier.LoadLocalModel(classifierCfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("loading local model: %w", err)
		}
		if engine.Schema().UsesReasons() && !local.HasReasonHead() {
			logger.WithField("model", local.Name()).Warn("Model has no reason head; every assessment will report an unmapped reason")
		}
		model = local
		aligner = local.Manifest()
	case config.ClassifierRemote:
		client := external.NewModelServerClient(classifierCfg, logger)
		model = classifier.NewRemoteModel(client)
		checks["classifier"] = client
	default:
		return nil, fmt.Errorf("unknown classifier mode: %s", classifierCfg.Mode)
	}

	// An explicit manifest overrides the model's own columns
	if advisorCfg.ColumnsPath != "" {
		manifest, err := classifier.LoadColumnManifest(advisorCfg.ColumnsPath)
		if err != nil {
			return nil, fmt.Errorf("loading column manifest: %w", err)
		}
		aligner = manifest
	}

	logger.WithFields(logrus.Fields{
		"schema":          engine.Schema().Name,
		"classifier":      model.Name(),
		"classifier_mode": classifierCfg.Mode,
	}).Info("Advisor initialized")

	return &Advisor{
		Service:        service.NewAdvisorService(logger, engine, model, aligner, sink),
		ClassifierMode: classifierCfg.Mode,
		Checks:         checks,
	}, nil
}

// NewRecorder opens the configured audit store and optional Redis publisher.
// It returns a nil recorder when auditing is disabled.
func NewRecorder(cfg *domain.Config, databaseURL string, logger *logrus.Logger) (*audit.Recorder, error) {
	var store audit.Store

	switch cfg.Audit.Driver {
	case config.AuditSQLite:
		sqlite, err := audit.NewSQLiteStore(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening audit database: %w", err)
		}
		store = sqlite
	case config.AuditPostgres:
		pg, err := audit.NewPostgresStoreFromURL(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening audit database: %w", err)
		}
		store = pg
	case config.AuditNone, "":
	default:
		return nil, fmt.Errorf("unknown audit driver: %s", cfg.Audit.Driver)
	}

	var publisher audit.Publisher
	if cfg.Audit.PublishChannel != "" {
		redisPublisher, err := audit.NewRedisPublisher(cfg.Cache, cfg.Audit.PublishChannel)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, fmt.Errorf("connecting safety event publisher: %w", err)
		}
		publisher = redisPublisher
	}

	if store == nil && publisher == nil {
		logger.Info("Safety event auditing disabled")
		return nil, nil
	}

	logger.WithFields(logrus.Fields{
		"driver":          cfg.Audit.Driver,
		"publish_channel": cfg.Audit.PublishChannel,
	}).Info("Safety event auditing enabled")

	return audit.NewRecorder(store, publisher, logger), nil
}
