package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/genclm/genctl/pkg/config"

	_ "github.com/lib/pq"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

// RunRecord is one tracked training run.
type RunRecord struct {
	RunID           string    `json:"run_id"`
	Mode            string    `json:"mode"`
	Model           string    `json:"model"`
	DataName        string    `json:"data_name"`
	OutputDir       string    `json:"output_dir"`
	Nodes           int       `json:"nodes"`
	Devices         int       `json:"devices"`
	GlobalBatchSize int       `json:"global_batch_size"`
	LearningRate    float64   `json:"learning_rate"`
	Status          string    `json:"status"`
	SubmittedAt     time.Time `json:"submitted_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewRunRecord builds the tracking row for a validated config.
func NewRunRecord(runID string, cfg *config.TrainingConfig) RunRecord {
	now := time.Now().UTC()
	return RunRecord{
		RunID:           runID,
		Mode:            cfg.Mode,
		Model:           cfg.ModelNameOrPath,
		DataName:        cfg.DataName,
		OutputDir:       cfg.OutputDir,
		Nodes:           cfg.Nodes,
		Devices:         cfg.Devices,
		GlobalBatchSize: cfg.GlobalBatchSize,
		LearningRate:    cfg.LearningRate,
		Status:          StatusSubmitted,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
}

const (
	StatusSubmitted = "SUBMITTED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

const DBName = "genctl_track"

func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		if DebugLog != nil {
			DebugLog("run tracking database disabled")
		}
		return db, nil
	}

	postgresConnStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	postgresConn, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		_, err = postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName))
		if err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		if DebugLog != nil {
			DebugLog("database %s created", DBName)
		}
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, DBName)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	db.conn = conn

	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id SERIAL PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL UNIQUE,
		mode VARCHAR(16) NOT NULL,
		model VARCHAR(255) NOT NULL,
		data_name VARCHAR(255) NOT NULL,
		output_dir VARCHAR(1024) NOT NULL,
		nodes INTEGER NOT NULL,
		devices INTEGER NOT NULL,
		global_batch_size INTEGER NOT NULL,
		learning_rate DOUBLE PRECISION NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'SUBMITTED',
		submitted_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// InsertRun records a newly submitted run.
func (db *DB) InsertRun(rec RunRecord) error {
	if !db.IsEnabled() {
		return nil
	}

	if DebugLog != nil {
		DebugLog("inserting run %s (%s) into database", rec.RunID, rec.Mode)
	}

	_, err := db.conn.Exec(`
		INSERT INTO runs (run_id, mode, model, data_name, output_dir, nodes, devices, global_batch_size, learning_rate, status, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, rec.RunID, rec.Mode, rec.Model, rec.DataName, rec.OutputDir,
		rec.Nodes, rec.Devices, rec.GlobalBatchSize, rec.LearningRate, rec.Status)
	return err
}

// UpdateRunStatus moves a run through SUBMITTED -> RUNNING -> COMPLETED/FAILED.
func (db *DB) UpdateRunStatus(runID, status string) error {
	if !db.IsEnabled() {
		return nil
	}

	if DebugLog != nil {
		DebugLog("updating run %s to %s in database", runID, status)
	}

	_, err := db.conn.Exec(`
		UPDATE runs
		SET status = $2, updated_at = NOW()
		WHERE run_id = $1
	`, runID, status)
	return err
}

// QueryRuns lists tracked runs, optionally filtered by mode and/or status.
func (db *DB) QueryRuns(mode, status string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT run_id, mode, model, data_name, output_dir, nodes, devices, global_batch_size, learning_rate, status, submitted_at, updated_at
		FROM runs
	`
	var conds []string
	var args []interface{}

	if mode != "" {
		args = append(args, mode)
		conds = append(conds, fmt.Sprintf("mode = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY submitted_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Mode, &r.Model, &r.DataName, &r.OutputDir,
			&r.Nodes, &r.Devices, &r.GlobalBatchSize, &r.LearningRate,
			&r.Status, &r.SubmittedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// QueryRun fetches a single run by id.
func (db *DB) QueryRun(runID string) (*RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	var r RunRecord
	err := db.conn.QueryRow(`
		SELECT run_id, mode, model, data_name, output_dir, nodes, devices, global_batch_size, learning_rate, status, submitted_at, updated_at
		FROM runs
		WHERE run_id = $1
	`, runID).Scan(&r.RunID, &r.Mode, &r.Model, &r.DataName, &r.OutputDir,
		&r.Nodes, &r.Devices, &r.GlobalBatchSize, &r.LearningRate,
		&r.Status, &r.SubmittedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
