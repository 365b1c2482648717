// internal/report/store.go

// Package report persists verification results: a Postgres store for rows and
// batch summaries, an optional Elasticsearch audit indexer, and a JSON file
// writer for offline review.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/pipeline"
)

// Store writes verification results to Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// SaveRow inserts one result row. The parsed and reference payloads go into
// JSONB columns so the schema does not chase field churn.
func (s *Store) SaveRow(ctx context.Context, row pipeline.ResultRow) error {
	parsedJSON, err := json.Marshal(row.Parsed)
	if err != nil {
		return fmt.Errorf("marshal parsed record: %w", err)
	}
	referenceJSON, err := json.Marshal(row.Reference)
	if err != nil {
		return fmt.Errorf("marshal reference record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_results (
			id, batch_id, document, page,
			security_status, security_risk, security_score, security_threats,
			parsed, reference,
			overall_verdict, name_match, score_match, reference_match,
			inconsistencies, confidence, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		row.ID,
		row.BatchID,
		row.Document,
		row.Page,
		row.Security.Status,
		string(row.Security.RiskLevel),
		row.Security.RiskScore,
		row.Security.Threats,
		parsedJSON,
		referenceJSON,
		string(row.Verdict.Overall),
		string(row.Verdict.NameMatch),
		string(row.Verdict.ScoreMatch),
		string(row.Verdict.ReferenceMatch),
		row.Verdict.Inconsistencies,
		string(row.Verdict.Confidence),
		row.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result row: %w", err)
	}
	return nil
}

// SaveSummary inserts the batch summary after all rows are stored.
func (s *Store) SaveSummary(ctx context.Context, summary pipeline.BatchSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_batches (
			batch_id, documents, payloads, valid, partially_valid,
			possible_forgeries, quarantined, no_payload, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		summary.BatchID,
		summary.Documents,
		summary.Payloads,
		summary.Valid,
		summary.PartiallyValid,
		summary.PossibleForgeries,
		summary.Quarantined,
		summary.NoPayload,
		summary.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert batch summary: %w", err)
	}
	return nil
}

// SaveBatch stores all rows and the summary. Row failures are logged and
// counted, not fatal: a broken row must not lose the rest of the batch.
func (s *Store) SaveBatch(ctx context.Context, rows []pipeline.ResultRow, summary pipeline.BatchSummary) error {
	failed := 0
	for _, row := range rows {
		if err := s.SaveRow(ctx, row); err != nil {
			failed++
			s.logger.Error("failed to store result row", map[string]interface{}{
				"rowId":    row.ID,
				"document": row.Document,
				"error":    err.Error(),
			})
		}
	}

	if err := s.SaveSummary(ctx, summary); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed to store", failed, len(rows))
	}
	return nil
}
