// internal/reconcile/models.go
package reconcile

// MatchStatus is the outcome of a single field comparison.
type MatchStatus string

const (
	MatchExact       MatchStatus = "EXACT"
	MatchPartial     MatchStatus = "PARTIAL"
	MatchMismatch    MatchStatus = "MISMATCH"
	MatchNotVerified MatchStatus = "NOT_VERIFIED"
	MatchFormatError MatchStatus = "FORMAT_ERROR"
)

// Verdict is the overall trust classification for a document.
type Verdict string

const (
	VerdictValid            Verdict = "VALID"
	VerdictPartiallyValid   Verdict = "PARTIALLY_VALID"
	VerdictPossibleForgery  Verdict = "POSSIBLE_FORGERY"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
	VerdictValidationError  Verdict = "VALIDATION_ERROR"
)

// Confidence grades how much weight the verdict deserves.
type Confidence string

const (
	ConfidenceHigh         Confidence = "HIGH"
	ConfidenceMedium       Confidence = "MEDIUM"
	ConfidenceLow          Confidence = "LOW"
	ConfidenceUndetermined Confidence = "UNDETERMINED"
)

// ReferenceRecord holds the fields retrieved from the authoritative source
// for one certificate.
type ReferenceRecord struct {
	Name             string `json:"name"`
	Score            string `json:"score"`
	ReferenceNumber  string `json:"reference_number"`
	Authority        string `json:"authority"`
	DocumentType     string `json:"document_type"`
	Career           string `json:"career"`
	RegistrationDate string `json:"registration_date"`
}

// IsEmpty reports whether the fetch produced no usable fields at all.
func (r ReferenceRecord) IsEmpty() bool {
	return r.Name == "" && r.Score == "" && r.ReferenceNumber == ""
}

// VerdictRecord is the immutable result of reconciling one parsed payload
// against one reference record.
type VerdictRecord struct {
	Overall         Verdict     `json:"overall_verdict"`
	NameMatch       MatchStatus `json:"name_match"`
	ScoreMatch      MatchStatus `json:"score_match"`
	ReferenceMatch  MatchStatus `json:"reference_match"`
	Inconsistencies string      `json:"inconsistencies"`
	Confidence      Confidence  `json:"confidence"`
}
