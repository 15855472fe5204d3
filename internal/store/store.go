// Package store persists settled document jobs for history and statistics.
// The driver is picked from the DSN: postgres:// URLs go through the pgx
// stdlib adapter, everything else is treated as a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	document_type      TEXT NOT NULL,
	status             TEXT NOT NULL,
	confidence         REAL,
	processing_time_ms INTEGER,
	failure            TEXT,
	extracted_json     TEXT,
	created_at         TIMESTAMP NOT NULL
)`

// Store wraps the history database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects, pings, and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}
	logger.Info("store.open", "driver", driver)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() {
	s.logger.Info("store.close")
	if err := s.db.Close(); err != nil {
		s.logger.Error("store.close_error", "error", err)
	}
}

// SaveJob upserts one settled job. Pending/processing jobs are skipped; the
// store only records terminal outcomes.
func (s *Store) SaveJob(ctx context.Context, job *entity.ProcessingJob) error {
	if !job.Status.Terminal() {
		return nil
	}

	var (
		confidence sql.NullFloat64
		elapsed    sql.NullInt64
		extracted  sql.NullString
		failure    sql.NullString
	)
	if job.Result != nil {
		confidence = sql.NullFloat64{Float64: job.Result.Confidence, Valid: true}
		elapsed = sql.NullInt64{Int64: job.Result.ProcessingTime.Milliseconds(), Valid: true}
		if b, err := json.Marshal(job.Result.Fields); err == nil {
			extracted = sql.NullString{String: string(b), Valid: true}
		}
	}
	if job.Failure != "" {
		failure = sql.NullString{String: job.Failure, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, document_type, status, confidence, processing_time_ms, failure, extracted_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			confidence = EXCLUDED.confidence,
			processing_time_ms = EXCLUDED.processing_time_ms,
			failure = EXCLUDED.failure,
			extracted_json = EXCLUDED.extracted_json`,
		job.ID.String(),
		job.Source.Name,
		string(job.DeclaredType),
		string(job.Status),
		confidence,
		elapsed,
		failure,
		extracted,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("store.save_failed", "job_id", job.ID, "error", err)
		return fmt.Errorf("save job: %w", err)
	}
	s.logger.Debug("store.save_ok", "job_id", job.ID, "status", job.Status)
	return nil
}

// SaveJobs persists every settled job in the slice.
func (s *Store) SaveJobs(ctx context.Context, jobs []*entity.ProcessingJob) error {
	for _, j := range jobs {
		if err := s.SaveJob(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// TypeStats is the settled count pair for one document category.
type TypeStats struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Stats summarizes the stored history.
type Stats struct {
	PerType           map[constants.DocType]TypeStats `json:"document_stats"`
	AvgProcessingTime float64                         `json:"avg_processing_time"`
	AvgConfidence     float64                         `json:"avg_confidence"`
	TotalCompleted    int                             `json:"total_completed"`
}

// Stats reports per-category counts and averages over completed documents.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{PerType: make(map[constants.DocType]TypeStats)}
	for _, dt := range constants.AllDocTypes() {
		out.PerType[dt] = TypeStats{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_type, status, COUNT(*)
		FROM documents
		GROUP BY document_type, status`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docType string
			status  string
			count   int
		)
		if err := rows.Scan(&docType, &status, &count); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		ts := out.PerType[constants.DocType(docType)]
		switch constants.JobStatus(status) {
		case constants.JobCompleted:
			ts.Completed = count
			out.TotalCompleted += count
		case constants.JobError:
			ts.Failed = count
		}
		out.PerType[constants.DocType(docType)] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}

	var avgTime, avgConf sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(processing_time_ms), AVG(confidence)
		FROM documents
		WHERE status = $1`, string(constants.JobCompleted)).Scan(&avgTime, &avgConf)
	if err != nil {
		return nil, fmt.Errorf("query averages: %w", err)
	}
	if avgTime.Valid {
		out.AvgProcessingTime = avgTime.Float64
	}
	if avgConf.Valid {
		out.AvgConfidence = avgConf.Float64
	}

	return out, nil
}
