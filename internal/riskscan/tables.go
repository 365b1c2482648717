// internal/riskscan/tables.go
package riskscan

import "regexp"

// riskyConstruct pairs a PDF name-object marker with its inherent severity.
// Scan order is fixed so threat lines come out deterministic.
type riskyConstruct struct {
	Marker   string
	Severity Severity
}

var riskyConstructs = []riskyConstruct{
	{"/JavaScript", SeverityCritical},
	{"/JS", SeverityCritical},
	{"/OpenAction", SeverityHigh},
	{"/AA", SeverityHigh},
	{"/Launch", SeverityCritical},
	{"/EmbeddedFile", SeverityMedium},
	{"/XFA", SeverityMedium},
	{"/RichMedia", SeverityHigh},
	{"/3D", SeverityMedium},
	{"/Sound", SeverityLow},
	{"/Movie", SeverityMedium},
	{"/SubmitForm", SeverityHigh},
	{"/ImportData", SeverityHigh},
	{"/GoToR", SeverityMedium},
	{"/URI", SeverityLow},
}

// severityWeights are the per-occurrence score contributions.
var severityWeights = map[Severity]int{
	SeverityCritical: 50,
	SeverityHigh:     25,
	SeverityMedium:   10,
	SeverityLow:      5,
}

// suspiciousPattern pairs a regex with its human-readable description. Each
// pattern with at least one match contributes a flat amount regardless of
// occurrence count.
type suspiciousPattern struct {
	Regex       *regexp.Regexp
	Description string
}

var suspiciousPatterns = []suspiciousPattern{
	{regexp.MustCompile(`(?i)eval\s*\(`), "JavaScript eval()"},
	{regexp.MustCompile(`(?i)document\.write`), "JavaScript document.write"},
	{regexp.MustCompile(`(?i)unescape\s*\(`), "JavaScript unescape()"},
	{regexp.MustCompile(`(?i)fromCharCode`), "JavaScript fromCharCode"},
	{regexp.MustCompile(`(?i)ActiveXObject`), "ActiveX Object"},
	{regexp.MustCompile(`(?i)WScript\.Shell`), "Windows Script Host"},
	{regexp.MustCompile(`(?i)cmd\.exe`), "Command Execution"},
	{regexp.MustCompile(`(?i)powershell`), "PowerShell"},
	{regexp.MustCompile(`(?i)https?://[^\s<>"']+`), "External URLs"},
}

var externalRefPattern = regexp.MustCompile(`(?i)https?://[^\s<>"')\]}]+`)

// Flat score contributions outside the construct table.
const (
	suspiciousPatternScore = 15
	encryptedScore         = 20
	formsScore             = 10
	externalRefScore       = 15
)

// riskBands classify the accumulated score, evaluated top-down.
var riskBands = []struct {
	minScore       int
	level          RiskLevel
	recommendation string
}{
	{100, RiskCritical, "BLOCK - high-danger file"},
	{50, RiskHigh, "QUARANTINE - manual review"},
	{25, RiskMedium, "CAUTION - monitor"},
	{1, RiskLow, "ALLOW - minimal risk"},
	{0, RiskSafe, "SAFE - no threats detected"},
}

// suspiciousMetadataTerms flag creator/producer strings that no legitimate
// authoring tool would carry.
var suspiciousMetadataTerms = []string{
	"malware", "virus", "trojan", "exploit", "hack",
	"shell", "payload", "backdoor",
}

const (
	maxExternalReferences = 10
	maxPatternSamples     = 3
)
