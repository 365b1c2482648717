// internal/riskscan/models.go
package riskscan

// Severity is the inherent danger grade of a document construct.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// RiskLevel is the aggregate classification for a document.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	RiskUnknown  RiskLevel = "UNKNOWN"
)

// StructuralFindings is what the document introspector reports about the
// parsed structure, as opposed to the raw byte scan.
type StructuralFindings struct {
	Encrypted     bool     `json:"encrypted"`
	NeedsPassword bool     `json:"needs_password"`
	PageCount     int      `json:"page_count"`
	HasForms      bool     `json:"has_forms"`
	HasLinks      bool     `json:"has_links"`
	LinkURIs      []string `json:"link_uris,omitempty"`
}

// ConstructHit records one dangerous construct found in the raw bytes.
type ConstructHit struct {
	Count    int      `json:"count"`
	Severity Severity `json:"severity"`
}

// PatternHit records one suspicious text pattern with at least one match.
type PatternHit struct {
	Description string   `json:"description"`
	Matches     int      `json:"matches"`
	Samples     []string `json:"samples,omitempty"`
}

// RawFindings is the intermediate product of the raw byte scan.
type RawFindings struct {
	Constructs         map[string]ConstructHit `json:"constructs"`
	constructOrder     []string
	SuspiciousPatterns []PatternHit `json:"suspicious_patterns"`
	ExternalReferences []string     `json:"external_references"`
}

// RiskAssessment is the aggregate risk result for one document.
type RiskAssessment struct {
	Level          RiskLevel `json:"overall_risk"`
	Score          int       `json:"risk_score"`
	Threats        []string  `json:"threats"`
	Recommendation string    `json:"recommendation"`
}

// ThreatCount returns the number of threat lines.
func (a RiskAssessment) ThreatCount() int {
	return len(a.Threats)
}

// FileInfo carries basic identity facts about a scanned file.
type FileInfo struct {
	Filename  string  `json:"filename"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	SHA256    string  `json:"sha256"`
	ModTime   int64   `json:"timestamp"`
}

// DocumentMetadata holds the descriptive metadata extracted from a document.
type DocumentMetadata struct {
	Creator          string `json:"creator"`
	Producer         string `json:"producer"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Subject          string `json:"subject"`
	CreationDate     string `json:"creation_date"`
	ModificationDate string `json:"modification_date"`
}
