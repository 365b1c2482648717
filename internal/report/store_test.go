// internal/report/store_test.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/pipeline"
	"cert-verifier/internal/qrparse"
	"cert-verifier/internal/reconcile"
	"cert-verifier/internal/riskscan"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func sampleRow() pipeline.ResultRow {
	return pipeline.ResultRow{
		ID:       "row-1",
		BatchID:  "batch-1",
		Document: "cert.pdf",
		Security: pipeline.SecuritySummary{
			Status:    pipeline.SecuritySafe,
			RiskLevel: riskscan.RiskSafe,
		},
		Parsed: qrparse.ParsedRecord{
			StudentName: "JUAN CARLOS PEREZ LOPEZ",
			Score:       "8.5",
		},
		Reference: reconcile.ReferenceRecord{Name: "JUAN CARLOS PEREZ LOPEZ"},
		Verdict: reconcile.VerdictRecord{
			Overall:    reconcile.VerdictValid,
			Confidence: reconcile.ConfidenceHigh,
		},
		ProcessedAt: time.Now().UTC(),
	}
}

func sampleSummary() pipeline.BatchSummary {
	return pipeline.BatchSummary{
		BatchID:   "batch-1",
		Documents: 2,
		Payloads:  2,
		Valid:     1,
		Duration:  3 * time.Second,
	}
}

// ==========================
// Store Tests
// ==========================

func TestStore_SaveRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO verification_results").
		WithArgs(
			"row-1", "batch-1", "cert.pdf", 0,
			pipeline.SecuritySafe, "SAFE", 0, "",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			"VALID", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"", "HIGH", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.SaveRow(context.Background(), sampleRow())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO verification_batches").
		WithArgs("batch-1", 2, 2, 1, 0, 0, 0, 0, int64(3000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.SaveSummary(context.Background(), sampleSummary())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveBatch_ReportsRowFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO verification_results").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("INSERT INTO verification_batches").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.SaveBatch(context.Background(), []pipeline.ResultRow{sampleRow()}, sampleSummary())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 rows failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveBatch_SummaryFailureIsFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO verification_batches").
		WillReturnError(errors.New("relation does not exist"))

	store := NewStore(db, logger.NewNoOpLogger())
	err = store.SaveBatch(context.Background(), nil, sampleSummary())

	assert.Error(t, err)
}

// ==========================
// JSON Writer Tests
// ==========================

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteJSON(dir, []pipeline.ResultRow{sampleRow()}, sampleSummary())

	assert.NoError(t, err)
	assert.FileExists(t, path)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	var report batchReport
	assert.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "batch-1", report.Summary.BatchID)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, "JUAN CARLOS PEREZ LOPEZ", report.Results[0].Parsed.StudentName)
}

func TestWriteJSON_CreatesOutputDir(t *testing.T) {
	dir := t.TempDir() + "/nested/reports"

	path, err := WriteJSON(dir, nil, sampleSummary())

	assert.NoError(t, err)
	assert.FileExists(t, path)
}
