// internal/riskscan/scanner.go
package riskscan

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/common/metrics"
)

// Scanner scores documents for embedded-threat indicators. It owns only the
// scoring and classification logic; structure introspection is supplied by
// the caller.
type Scanner struct {
	logger logger.Logger
}

func NewScanner(log logger.Logger) *Scanner {
	return &Scanner{logger: log}
}

// Assess scans the raw document bytes, folds in the structural findings, and
// classifies the accumulated score. It never fails: any fault degrades to an
// UNKNOWN assessment with score -1, which the quarantine gate treats as
// dangerous.
func (s *Scanner) Assess(docBytes []byte, structural StructuralFindings) (assessment RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			assessment = FailedAssessment(fmt.Sprintf("%v", r))
			s.logger.Error("risk scan fault", map[string]interface{}{
				"error": fmt.Sprintf("%v", r),
			})
		}
	}()

	findings := s.scanRaw(docBytes)

	score := 0
	var threats []string

	for _, marker := range findings.constructOrder {
		hit := findings.Constructs[marker]
		score += severityWeights[hit.Severity] * hit.Count
		threats = append(threats,
			fmt.Sprintf("%s: %s found %d times", hit.Severity, marker, hit.Count))
	}

	for _, pattern := range findings.SuspiciousPatterns {
		score += suspiciousPatternScore
		threats = append(threats, fmt.Sprintf("Suspicious pattern: %s", pattern.Description))
	}

	if structural.Encrypted {
		score += encryptedScore
		threats = append(threats, "Encrypted document")
	}
	if structural.HasForms {
		score += formsScore
		threats = append(threats, "Contains form fields")
	}
	if len(findings.ExternalReferences) > 0 {
		score += externalRefScore
		threats = append(threats, "External references found")
	}

	assessment = RiskAssessment{Score: score, Threats: threats}
	for _, band := range riskBands {
		if score >= band.minScore {
			assessment.Level = band.level
			assessment.Recommendation = band.recommendation
			break
		}
	}

	metrics.DocumentsScanned.WithLabelValues(string(assessment.Level)).Inc()
	return assessment
}

// scanRaw performs the pure byte-level scan. PDF name objects and script
// idioms are ASCII, so the bytes are matched directly without decoding.
func (s *Scanner) scanRaw(docBytes []byte) RawFindings {
	content := string(docBytes)

	findings := RawFindings{Constructs: make(map[string]ConstructHit)}

	for _, construct := range riskyConstructs {
		if count := strings.Count(content, construct.Marker); count > 0 {
			findings.Constructs[construct.Marker] = ConstructHit{
				Count:    count,
				Severity: construct.Severity,
			}
			findings.constructOrder = append(findings.constructOrder, construct.Marker)
		}
	}

	for _, pattern := range suspiciousPatterns {
		matches := pattern.Regex.FindAllString(content, -1)
		if len(matches) == 0 {
			continue
		}
		samples := matches
		if len(samples) > maxPatternSamples {
			samples = samples[:maxPatternSamples]
		}
		findings.SuspiciousPatterns = append(findings.SuspiciousPatterns, PatternHit{
			Description: pattern.Description,
			Matches:     len(matches),
			Samples:     samples,
		})
	}

	seen := make(map[string]bool)
	for _, url := range externalRefPattern.FindAllString(content, -1) {
		if seen[url] {
			continue
		}
		seen[url] = true
		findings.ExternalReferences = append(findings.ExternalReferences, url)
		if len(findings.ExternalReferences) >= maxExternalReferences {
			break
		}
	}

	return findings
}

// ShouldQuarantine reports whether the document must be blocked. Unknown
// results fail closed.
func ShouldQuarantine(assessment RiskAssessment) bool {
	switch assessment.Level {
	case RiskCritical, RiskHigh, RiskUnknown:
		return true
	}
	return assessment.Level == ""
}

// IsSafe reports whether the document can be handled without restrictions.
func IsSafe(assessment RiskAssessment) bool {
	return assessment.Level == RiskSafe || assessment.Level == RiskLow
}

// ScanMetadata flags suspicious creator/producer values. The resulting lines
// are informational and do not contribute to the risk score.
func (s *Scanner) ScanMetadata(meta DocumentMetadata) []string {
	creator := strings.ToLower(meta.Creator)
	producer := strings.ToLower(meta.Producer)

	var flags []string
	for _, term := range suspiciousMetadataTerms {
		if strings.Contains(creator, term) || strings.Contains(producer, term) {
			flags = append(flags, fmt.Sprintf("Suspicious creator/producer: %s", term))
		}
	}
	return flags
}

// FileInfoFor digests a file on disk for the scan report.
func FileInfoFor(path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return FileInfo{}, fmt.Errorf("hash %s: %w", path, err)
	}

	sizeMB := float64(stat.Size()) / (1024 * 1024)
	return FileInfo{
		Filename:  filepath.Base(path),
		SizeBytes: stat.Size(),
		SizeMB:    float64(int(sizeMB*100+0.5)) / 100,
		SHA256:    fmt.Sprintf("%x", h.Sum(nil)),
		ModTime:   stat.ModTime().Unix(),
	}, nil
}

// FailedAssessment is the fail-closed result for a scan that could not run.
func FailedAssessment(msg string) RiskAssessment {
	return RiskAssessment{
		Level:          RiskUnknown,
		Score:          -1,
		Threats:        []string{fmt.Sprintf("Scan failed: %s", msg)},
		Recommendation: "MANUAL REVIEW - scan failed",
	}
}
