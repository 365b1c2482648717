// internal/pipeline/models.go
package pipeline

import (
	"time"

	"cert-verifier/internal/qrparse"
	"cert-verifier/internal/reconcile"
	"cert-verifier/internal/riskscan"
)

// Document-level outcomes that extend the reconciliation verdicts. These show
// up in result rows for documents or payloads that never reached the engine.
const (
	VerdictBlockedSecurity reconcile.Verdict = "BLOCKED_SECURITY"
	VerdictNoPayload       reconcile.Verdict = "NO_QR"
	VerdictNoURL           reconcile.Verdict = "NO_URL"
	VerdictFetchError      reconcile.Verdict = "FETCH_ERROR"
)

// Security statuses for a result row.
const (
	SecuritySafe        = "SAFE"
	SecurityQuarantined = "QUARANTINE"
)

// SecuritySummary is the per-row condensation of the risk assessment.
type SecuritySummary struct {
	Status         string             `json:"security_status"`
	RiskLevel      riskscan.RiskLevel `json:"security_risk"`
	RiskScore      int                `json:"security_score"`
	Threats        string             `json:"security_threats"`
	Recommendation string             `json:"security_recommendation"`
}

// ResultRow is one report line: one decoded payload, or a single
// quarantine/no-payload marker for the whole document.
type ResultRow struct {
	ID          string                    `json:"id"`
	BatchID     string                    `json:"batch_id"`
	Document    string                    `json:"document"`
	Page        int                       `json:"page"`
	Security    SecuritySummary           `json:"security"`
	Parsed      qrparse.ParsedRecord      `json:"parsed"`
	Reference   reconcile.ReferenceRecord `json:"reference"`
	Verdict     reconcile.VerdictRecord   `json:"verdict"`
	ProcessedAt time.Time                 `json:"processed_at"`
}

// BatchSummary aggregates one pipeline run.
type BatchSummary struct {
	BatchID           string        `json:"batch_id"`
	Documents         int           `json:"documents"`
	Payloads          int           `json:"payloads"`
	Valid             int           `json:"valid"`
	PartiallyValid    int           `json:"partially_valid"`
	PossibleForgeries int           `json:"possible_forgeries"`
	Quarantined       int           `json:"quarantined"`
	NoPayload         int           `json:"no_payload"`
	Duration          time.Duration `json:"duration"`
}

// Summarize derives a BatchSummary from the collected rows.
func Summarize(batchID string, rows []ResultRow, documents int, duration time.Duration) BatchSummary {
	summary := BatchSummary{
		BatchID:   batchID,
		Documents: documents,
		Duration:  duration,
	}
	for _, row := range rows {
		switch row.Verdict.Overall {
		case reconcile.VerdictValid:
			summary.Valid++
			summary.Payloads++
		case reconcile.VerdictPartiallyValid:
			summary.PartiallyValid++
			summary.Payloads++
		case reconcile.VerdictPossibleForgery:
			summary.PossibleForgeries++
			summary.Payloads++
		case VerdictBlockedSecurity:
			summary.Quarantined++
		case VerdictNoPayload:
			summary.NoPayload++
		default:
			summary.Payloads++
		}
	}
	return summary
}
