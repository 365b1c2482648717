// internal/reconcile/engine.go
package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/qrparse"
)

// Fixed design constants. The thresholds and the partial-name weight are part
// of the verdict contract and are deliberately not configurable.
const (
	exactWeight       = 1.0
	partialNameWeight = 0.7
	scoreTolerance    = 0.01
)

// verdictBands map a match percentage to verdict and confidence, evaluated
// top-down with >=.
var verdictBands = []struct {
	minPercent float64
	verdict    Verdict
	confidence Confidence
}{
	{95, VerdictValid, ConfidenceHigh},
	{80, VerdictPartiallyValid, ConfidenceMedium},
	{0, VerdictPossibleForgery, ConfidenceLow},
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	scoreDenominator = regexp.MustCompile(`/.*`)
)

// Engine compares parsed QR payloads against reference records.
type Engine struct {
	logger logger.Logger
}

func NewEngine(log logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Reconcile compares a parsed payload against the authoritative record and
// emits a graded verdict. It is pure and never fails: internal faults degrade
// to a VALIDATION_ERROR verdict carrying the fault text.
func (e *Engine) Reconcile(parsed qrparse.ParsedRecord, ref ReferenceRecord) (result VerdictRecord) {
	result = VerdictRecord{
		Overall:        VerdictInsufficientData,
		NameMatch:      MatchNotVerified,
		ScoreMatch:     MatchNotVerified,
		ReferenceMatch: MatchNotVerified,
		Confidence:     ConfidenceUndetermined,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Overall = VerdictValidationError
			result.Inconsistencies = fmt.Sprintf("validation fault: %v", r)
			e.logger.Error("reconciliation fault", map[string]interface{}{
				"error": fmt.Sprintf("%v", r),
			})
		}
	}()

	var inconsistencies []string
	var weightSum float64
	performed := 0

	// Name: normalized comparison, raw values quoted in inconsistencies.
	qrName := normalizeName(parsed.StudentName)
	refName := normalizeName(ref.Name)
	if qrName != "" && refName != "" {
		performed++
		switch {
		case qrName == refName:
			result.NameMatch = MatchExact
			weightSum += exactWeight
		case strings.Contains(refName, qrName) || strings.Contains(qrName, refName):
			result.NameMatch = MatchPartial
			weightSum += partialNameWeight
		default:
			result.NameMatch = MatchMismatch
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("NAME: QR='%s' vs WEB='%s'", parsed.StudentName, ref.Name))
		}
	}

	// Score: tolerant numeric comparison after stripping a "/denominator".
	qrScore := strings.TrimSpace(parsed.Score)
	refScore := strings.TrimSpace(ref.Score)
	if qrScore != "" && refScore != "" {
		performed++
		qrVal, qrErr := parseScore(qrScore)
		refVal, refErr := parseScore(refScore)
		switch {
		case qrErr != nil || refErr != nil:
			result.ScoreMatch = MatchFormatError
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("SCORE: bad format - QR='%s' WEB='%s'", qrScore, refScore))
		case abs(qrVal-refVal) < scoreTolerance:
			result.ScoreMatch = MatchExact
			weightSum += exactWeight
		default:
			result.ScoreMatch = MatchMismatch
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("SCORE: QR='%s' vs WEB='%s'", qrScore, refScore))
		}
	}

	// Reference number: exact string match only.
	qrRef := strings.TrimSpace(parsed.ReferenceNumber)
	refRef := strings.TrimSpace(ref.ReferenceNumber)
	if qrRef != "" && refRef != "" {
		performed++
		if qrRef == refRef {
			result.ReferenceMatch = MatchExact
			weightSum += exactWeight
		} else {
			result.ReferenceMatch = MatchMismatch
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("REFERENCE: QR='%s' vs WEB='%s'", qrRef, refRef))
		}
	}

	if performed > 0 {
		percent := weightSum / float64(performed) * 100
		for _, band := range verdictBands {
			if percent >= band.minPercent {
				result.Overall = band.verdict
				result.Confidence = band.confidence
				break
			}
		}
	}

	result.Inconsistencies = strings.Join(inconsistencies, "; ")
	return result
}

// normalizeName collapses non-breaking spaces and whitespace runs to single
// spaces, trims, and uppercases.
func normalizeName(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, " ", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseScore strips a "/denominator" suffix like "8.5/10" and parses the rest.
func parseScore(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(scoreDenominator.ReplaceAllString(s, "")), 64)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
