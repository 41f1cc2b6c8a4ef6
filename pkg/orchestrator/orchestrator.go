package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/genclm/genctl/pkg/config"
	"github.com/genclm/genctl/pkg/database"
	"github.com/genclm/genctl/pkg/elastic"
	"github.com/genclm/genctl/pkg/launcher"
	"github.com/genclm/genctl/pkg/session"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

// Orchestrator owns the run lifecycle: load and validate the training config,
// record the run, hand off to the trainer, and track the outcome.
type Orchestrator struct {
	toolConfig *config.ToolConfig
	logger     *logrus.Logger
	db         *database.DB
	es         *elastic.Client
	launcher   *launcher.Launcher
}

// RunOptions carries one launch request.
type RunOptions struct {
	ConfigFile string
	Overrides  map[string]string
	DryRun     bool
}

// RunResult reports what happened to a launched run.
type RunResult struct {
	RunID    string
	Config   *config.TrainingConfig
	Command  string
	ExitCode int
	Duration time.Duration
	DryRun   bool
}

func NewOrchestrator(toolConfigPath string) (*Orchestrator, error) {
	toolCfg, err := config.LoadToolConfig(toolConfigPath)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})

	o := &Orchestrator{
		toolConfig: toolCfg,
		logger:     logger,
		launcher:   launcher.New(toolCfg.Trainer),
	}

	db, err := database.New(&toolCfg.Database)
	if err != nil {
		logger.Warnf("run tracking database unavailable: %v", err)
	}
	o.db = db

	if toolCfg.Elasticsearch.Enabled {
		es, err := elastic.New(toolCfg.Elasticsearch, session.NewTransport())
		if err != nil {
			logger.Warnf("elasticsearch unavailable: %v", err)
		} else {
			o.es = es
		}
	}

	return o, nil
}

func (o *Orchestrator) GetDB() *database.DB {
	return o.db
}

func (o *Orchestrator) Logger() *logrus.Logger {
	return o.logger
}

// LoadRun validates a training document without launching anything.
func (o *Orchestrator) LoadRun(configFile string, overrides map[string]string) (*config.TrainingConfig, []string, error) {
	manager := config.NewManager(configFile, overrides)
	if err := manager.LoadConfig(); err != nil {
		return nil, manager.Warnings(), err
	}
	return manager.GetConfig(), manager.Warnings(), nil
}

// Launch validates the run and hands it off to the trainer. All validation
// violations surface before any resource is touched; a dry run stops right
// after validation.
func (o *Orchestrator) Launch(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cfg, warnings, err := o.LoadRun(opts.ConfigFile, opts.Overrides)
	for _, w := range warnings {
		o.logger.Warn(w)
	}
	if err != nil {
		return nil, err
	}

	runID := newRunID(cfg.Mode)
	result := &RunResult{
		RunID:  runID,
		Config: cfg,
		DryRun: opts.DryRun,
	}

	if opts.DryRun {
		result.Command = o.launcher.CommandLine("<output_dir>/config.yaml", cfg)
		return result, nil
	}

	resolvedPath, err := launcher.WriteResolvedConfig(cfg)
	if err != nil {
		return nil, err
	}
	result.Command = o.launcher.CommandLine(resolvedPath, cfg)

	record := database.NewRunRecord(runID, cfg)
	if err := o.db.InsertRun(record); err != nil {
		o.logger.Warnf("failed to record run %s: %v", runID, err)
	}
	o.indexRun(ctx, record)

	o.logger.Infof("run %s: %s on %s, world size %d, stopping at %s",
		runID, cfg.Mode, cfg.ModelNameOrPath, cfg.WorldSize(), cfg.StoppingCondition())

	o.setStatus(ctx, runID, record, database.StatusRunning)

	start := time.Now()
	runErr := o.launcher.Run(ctx, resolvedPath, cfg)
	result.Duration = time.Since(start)
	result.ExitCode = launcher.ExitCode(runErr)

	if runErr != nil {
		o.setStatus(ctx, runID, record, database.StatusFailed)
		return result, fmt.Errorf("run %s failed after %v: %w", runID, result.Duration, runErr)
	}

	o.setStatus(ctx, runID, record, database.StatusCompleted)
	o.logger.Infof("run %s completed in %v", runID, result.Duration)
	return result, nil
}

// ExportRuns pushes every tracked run from the database into the search index.
func (o *Orchestrator) ExportRuns(ctx context.Context) (int, error) {
	if o.es == nil {
		return 0, fmt.Errorf("elasticsearch is not enabled")
	}
	records, err := o.db.QueryRuns("", "")
	if err != nil {
		return 0, err
	}
	if err := o.es.ExportRuns(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (o *Orchestrator) setStatus(ctx context.Context, runID string, record database.RunRecord, status string) {
	if err := o.db.UpdateRunStatus(runID, status); err != nil {
		o.logger.Warnf("failed to update run %s status: %v", runID, err)
	}
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	o.indexRun(ctx, record)
}

func (o *Orchestrator) indexRun(ctx context.Context, record database.RunRecord) {
	if o.es == nil {
		return
	}
	if err := o.es.IndexRun(ctx, record); err != nil {
		o.logger.Warnf("failed to index run %s: %v", record.RunID, err)
	}
}

// newRunID builds a sortable, collision-safe run identifier like
// esft-20260826T120000-3f9a2c.
func newRunID(mode string) string {
	var suffix [3]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// timestamp alone still identifies the run
		return fmt.Sprintf("%s-%s", mode, time.Now().UTC().Format("20060102T150405"))
	}
	return fmt.Sprintf("%s-%s-%s", mode, time.Now().UTC().Format("20060102T150405"), hex.EncodeToString(suffix[:]))
}
