// internal/pipeline/orchestrator.go

// Package pipeline sequences the verification stages for each document:
// security gate first, then payload decoding, parsing, reference fetch, and
// reconciliation. Documents fan out over a bounded worker pool; within one
// document the stages run strictly in order.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/common/metrics"
	"cert-verifier/internal/docinspect"
	"cert-verifier/internal/qrparse"
	"cert-verifier/internal/reconcile"
	"cert-verifier/internal/refsource"
	"cert-verifier/internal/riskscan"

	"github.com/google/uuid"
)

const (
	// Worker pool bounds for batch fan-out.
	DefaultWorkers = 4
	MaxWorkers     = 8

	maxThreatsPerRow = 3
)

// Inspector produces structural findings and metadata for a document.
type Inspector interface {
	Inspect(path string) (riskscan.StructuralFindings, error)
	Metadata(path string) riskscan.DocumentMetadata
}

// Fetcher retrieves the authoritative record behind a certificate URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (reconcile.ReferenceRecord, error)
}

// Orchestrator runs the verification pipeline.
type Orchestrator struct {
	scanner   *riskscan.Scanner
	inspector Inspector
	renderer  docinspect.Renderer
	parser    *qrparse.Parser
	engine    *reconcile.Engine
	fetcher   Fetcher
	workers   int
	logger    logger.Logger
}

// New builds an Orchestrator. workers is clamped to [1, MaxWorkers]; zero
// selects the default.
func New(
	scanner *riskscan.Scanner,
	inspector Inspector,
	renderer docinspect.Renderer,
	parser *qrparse.Parser,
	engine *reconcile.Engine,
	fetcher Fetcher,
	workers int,
	log logger.Logger,
) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &Orchestrator{
		scanner:   scanner,
		inspector: inspector,
		renderer:  renderer,
		parser:    parser,
		engine:    engine,
		fetcher:   fetcher,
		workers:   workers,
		logger:    log,
	}
}

// ProcessBatch fans the documents out over the worker pool and aggregates the
// rows and the batch summary. Row order follows the input document order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, paths []string) ([]ResultRow, BatchSummary) {
	batchID := uuid.New().String()
	start := time.Now()

	o.logger.Info("batch started", map[string]interface{}{
		"batchId":   batchID,
		"documents": len(paths),
		"workers":   o.workers,
	})

	jobs := make(chan int)
	perDoc := make([][]ResultRow, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				perDoc[idx] = o.ProcessDocument(ctx, batchID, paths[idx])
			}
		}()
	}

	for idx := range paths {
		select {
		case jobs <- idx:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	var rows []ResultRow
	for _, docRows := range perDoc {
		rows = append(rows, docRows...)
	}

	summary := Summarize(batchID, rows, len(paths), time.Since(start))
	o.logger.Info("batch finished", map[string]interface{}{
		"batchId":     batchID,
		"payloads":    summary.Payloads,
		"valid":       summary.Valid,
		"quarantined": summary.Quarantined,
		"duration":    summary.Duration.String(),
	})
	return rows, summary
}

// ProcessDocument runs the full stage sequence for one document and returns
// one row per decoded payload, or a single marker row when the document is
// quarantined or carries no payload.
func (o *Orchestrator) ProcessDocument(ctx context.Context, batchID, path string) []ResultRow {
	metrics.DocumentsActive.Inc()
	defer metrics.DocumentsActive.Dec()

	document := filepath.Base(path)
	log := o.logger.WithFields(map[string]interface{}{"document": document})

	assessment := o.assess(path, log)
	security := summarizeSecurity(assessment)

	if riskscan.ShouldQuarantine(assessment) {
		metrics.DocumentsQuarantined.Inc()
		log.Warn("document quarantined", map[string]interface{}{
			"riskLevel": string(assessment.Level),
			"threats":   len(assessment.Threats),
		})
		security.Status = SecurityQuarantined
		return []ResultRow{o.markerRow(batchID, document, security, VerdictBlockedSecurity,
			"blocked by security quarantine")}
	}

	payloads := o.decode(ctx, path, log)
	if len(payloads) == 0 {
		log.Info("no payload found", nil)
		return []ResultRow{o.markerRow(batchID, document, security, VerdictNoPayload,
			"no QR payload detected")}
	}

	rows := make([]ResultRow, 0, len(payloads))
	for _, payload := range payloads {
		rows = append(rows, o.processPayload(ctx, batchID, document, security, payload, log))
	}
	return rows
}

// assess runs the security stage. Introspection failures fail closed.
func (o *Orchestrator) assess(path string, log logger.Logger) riskscan.RiskAssessment {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("security_scan").Observe(time.Since(start).Seconds())
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("document unreadable", map[string]interface{}{"error": err.Error()})
		return riskscan.FailedAssessment(err.Error())
	}

	structural, err := o.inspector.Inspect(path)
	if err != nil {
		log.Error("document introspection failed", map[string]interface{}{"error": err.Error()})
		return riskscan.FailedAssessment(err.Error())
	}

	assessment := o.scanner.Assess(data, structural)

	// Metadata red flags ride along as extra threat lines without touching
	// the score.
	if flags := o.scanner.ScanMetadata(o.inspector.Metadata(path)); len(flags) > 0 {
		assessment.Threats = append(assessment.Threats, flags...)
	}
	return assessment
}

// decode renders the first page and decodes payloads, deduplicating while
// preserving order.
func (o *Orchestrator) decode(ctx context.Context, path string, log logger.Logger) []string {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())
	}()

	payloads, err := o.renderer.RenderAndDecode(ctx, path, 0)
	if err != nil {
		log.Error("payload decode failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	seen := make(map[string]bool, len(payloads))
	unique := payloads[:0]
	for _, p := range payloads {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	return unique
}

func (o *Orchestrator) processPayload(ctx context.Context, batchID, document string, security SecuritySummary, payload string, log logger.Logger) ResultRow {
	parsed := o.parser.Parse(payload)
	if parsed.ParseError != "" {
		metrics.PayloadsParsed.WithLabelValues("error").Inc()
	} else {
		metrics.PayloadsParsed.WithLabelValues("ok").Inc()
	}

	row := ResultRow{
		ID:          uuid.New().String(),
		BatchID:     batchID,
		Document:    document,
		Security:    security,
		Parsed:      parsed,
		ProcessedAt: time.Now().UTC(),
	}

	if parsed.URL == "" {
		log.Info("payload has no validation URL", nil)
		row.Verdict = unverifiedVerdict(VerdictNoURL, "no URL found for validation")
		metrics.VerdictsEmitted.WithLabelValues(string(VerdictNoURL)).Inc()
		return row
	}

	reference, err := o.fetchReference(ctx, parsed.URL, log)
	if err != nil {
		row.Verdict = unverifiedVerdict(VerdictFetchError, "failed to access URL: "+err.Error())
		metrics.VerdictsEmitted.WithLabelValues(string(VerdictFetchError)).Inc()
		return row
	}
	row.Reference = reference

	start := time.Now()
	row.Verdict = o.engine.Reconcile(parsed, reference)
	metrics.StageDuration.WithLabelValues("reconcile").Observe(time.Since(start).Seconds())
	metrics.VerdictsEmitted.WithLabelValues(string(row.Verdict.Overall)).Inc()

	// Backfill the reference number from the portal when the payload lacks
	// it, after reconciliation so the comparison saw the original values.
	if row.Parsed.ReferenceNumber == "" && reference.ReferenceNumber != "" {
		row.Parsed.ReferenceNumber = reference.ReferenceNumber
	}

	log.Info("payload reconciled", map[string]interface{}{
		"verdict":    string(row.Verdict.Overall),
		"confidence": string(row.Verdict.Confidence),
	})
	return row
}

func (o *Orchestrator) fetchReference(ctx context.Context, url string, log logger.Logger) (reconcile.ReferenceRecord, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("reference_fetch").Observe(time.Since(start).Seconds())
	}()

	reference, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		level := log.Error
		if errors.Is(err, refsource.ErrUntrustedSource) {
			level = log.Warn
		}
		level("reference fetch failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return reconcile.ReferenceRecord{}, err
	}
	return reference, nil
}

func (o *Orchestrator) markerRow(batchID, document string, security SecuritySummary, verdict reconcile.Verdict, reason string) ResultRow {
	return ResultRow{
		ID:          uuid.New().String(),
		BatchID:     batchID,
		Document:    document,
		Security:    security,
		Verdict:     unverifiedVerdict(verdict, reason),
		ProcessedAt: time.Now().UTC(),
	}
}

func unverifiedVerdict(verdict reconcile.Verdict, reason string) reconcile.VerdictRecord {
	return reconcile.VerdictRecord{
		Overall:         verdict,
		NameMatch:       reconcile.MatchNotVerified,
		ScoreMatch:      reconcile.MatchNotVerified,
		ReferenceMatch:  reconcile.MatchNotVerified,
		Inconsistencies: reason,
		Confidence:      reconcile.ConfidenceUndetermined,
	}
}

func summarizeSecurity(assessment riskscan.RiskAssessment) SecuritySummary {
	threats := assessment.Threats
	if len(threats) > maxThreatsPerRow {
		threats = threats[:maxThreatsPerRow]
	}
	return SecuritySummary{
		Status:         SecuritySafe,
		RiskLevel:      assessment.Level,
		RiskScore:      assessment.Score,
		Threats:        strings.Join(threats, "; "),
		Recommendation: assessment.Recommendation,
	}
}
