// internal/qrparse/parser.go
package qrparse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cert-verifier/internal/common/logger"
)

// DefaultCertificateMarker is the sentinel stored when a payload proves a
// certificate is present.
const DefaultCertificateMarker = "SÍ"

var (
	urlPattern       = regexp.MustCompile(`(?i)https?://[^\s<>"']+|<a\s+href=['"](https?://[^"']*)['"]`)
	refFromURL       = regexp.MustCompile(`/([a-f0-9\-]+)(?:\?.*)?$`)
	idCodePattern    = regexp.MustCompile(`^[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]{2}$`)
	leadingMarker    = regexp.MustCompile(`^-\s*`)
	nameLabel        = regexp.MustCompile(`(?i)ALUMNO:\s*(.+)`)
	idCodeLabel      = regexp.MustCompile(`(?i)CURP[^:]*:\s*([A-Z0-9]+)`)
	scoreLabel       = regexp.MustCompile(`(?i)promedio:\s*(\d+\.?\d*)`)
	authorityLabel   = regexp.MustCompile(`(?i)autoridad:\s*(.+)`)
	referenceLabel   = regexp.MustCompile(`(?i)folio:\s*(.+)`)
	rangeYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)
	plainYearPattern = regexp.MustCompile(`^20\d{2}$`)
	anyYearPattern   = regexp.MustCompile(`^\d{4}(-\d{4})?$`)
	lettersOnly      = regexp.MustCompile(`^[a-zA-ZáéíóúñÁÉÍÓÚÑ\s]+$`)
	bareURL          = regexp.MustCompile(`(?i)https?://`)
)

// Institutional words that disqualify a free-standing line as a student name.
var nameBlacklist = []string{"CERTIFICADO", "UNIVERSIDAD", "SECRETARIA", "INSTITUTO"}

// Parser turns freeform decoded QR text into a ParsedRecord.
type Parser struct {
	marker string
	logger logger.Logger
}

// NewParser creates a Parser. An empty marker falls back to
// DefaultCertificateMarker.
func NewParser(marker string, log logger.Logger) *Parser {
	if marker == "" {
		marker = DefaultCertificateMarker
	}
	return &Parser{marker: marker, logger: log}
}

// Parse extracts structured fields from a raw QR payload. It never fails: an
// empty or unrecognizable payload yields an all-empty record, and an
// unexpected processing fault is recorded in ParseError.
func (p *Parser) Parse(rawText string) (record ParsedRecord) {
	record = ParsedRecord{RawText: rawText}

	defer func() {
		if r := recover(); r != nil {
			record.ParseError = fmt.Sprintf("%v", r)
			p.logger.Error("payload parse fault", map[string]interface{}{
				"error": record.ParseError,
			})
		}
	}()

	clean := strings.ReplaceAll(strings.TrimSpace(rawText), "\r", "\n")
	var lines []string
	for _, line := range strings.Split(clean, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	// URL is searched over the whole blob; the first match wins, and an
	// anchor-tag capture is preferred over the bare match.
	if m := urlPattern.FindStringSubmatch(rawText); m != nil {
		if len(m) > 1 && m[1] != "" {
			record.URL = m[1]
		} else {
			record.URL = m[0]
		}
		if rm := refFromURL.FindStringSubmatch(record.URL); rm != nil {
			record.ReferenceNumber = rm[1]
		}
	}

	for _, line := range lines {
		lineClean := leadingMarker.ReplaceAllString(strings.TrimSpace(line), "")
		lineUpper := strings.ToUpper(lineClean)

		switch {
		case strings.HasPrefix(lineUpper, "ALUMNO:") && record.StudentName == "":
			if m := nameLabel.FindStringSubmatch(lineClean); m != nil {
				record.StudentName = strings.TrimSpace(m[1])
			}

		case strings.HasPrefix(lineUpper, "CURP") && strings.Contains(lineUpper, "ALUMNO") && record.IDCode == "":
			if m := idCodeLabel.FindStringSubmatch(lineClean); m != nil {
				candidate := strings.ToUpper(strings.TrimSpace(m[1]))
				if isIDCode(candidate) {
					record.IDCode = candidate
				}
			}

		case strings.HasPrefix(lineUpper, "PROMEDIO:") && record.Score == "":
			if m := scoreLabel.FindStringSubmatch(lineClean); m != nil {
				record.Score = m[1]
			}

		case strings.HasPrefix(lineUpper, "AUTORIDAD:") && record.Authority == "":
			if m := authorityLabel.FindStringSubmatch(lineClean); m != nil {
				record.Authority = strings.TrimSpace(m[1])
			}

		case strings.HasPrefix(lineUpper, "FOLIO:") && record.ReferenceNumber == "":
			if m := referenceLabel.FindStringSubmatch(lineClean); m != nil {
				record.ReferenceNumber = strings.TrimSpace(m[1])
			}

		case strings.Contains(lineUpper, "CERTIFICADO") && record.CertificateMarker == "":
			record.CertificateMarker = p.marker

		case rangeYearPattern.MatchString(lineClean) && record.Year == "":
			record.Year = lineClean

		case plainYearPattern.MatchString(lineClean) && record.Year == "":
			record.Year = lineClean

		case record.IDCode == "" && isIDCode(lineClean):
			record.IDCode = strings.ToUpper(lineClean)

		case record.StudentName == "" && looksLikeName(lineClean):
			record.StudentName = lineClean
		}
	}

	// A payload that names a student or carries an id code implicitly proves
	// the certificate exists.
	if record.CertificateMarker == "" && (record.StudentName != "" || record.IDCode != "") {
		record.CertificateMarker = p.marker
	}

	// The free-name heuristic can swallow an unlabeled id code.
	if record.StudentName != "" && isIDCode(record.StudentName) {
		if record.IDCode == "" {
			record.IDCode = strings.ToUpper(record.StudentName)
		}
		record.StudentName = ""
	}

	return record
}

// isIDCode reports whether s satisfies the 18-character id-code grammar.
// Matching is case-insensitive; callers store the uppercase form.
func isIDCode(s string) bool {
	if s == "" {
		return false
	}
	return utf8.RuneCountInString(s) == 18 && idCodePattern.MatchString(strings.ToUpper(s))
}

// looksLikeName applies the free-standing name heuristic: a mid-length line of
// plain or accented letters with no label, URL, year, or id-code shape, and
// none of the institutional blacklist words.
func looksLikeName(line string) bool {
	n := utf8.RuneCountInString(line)
	if n <= 10 || n >= 80 {
		return false
	}
	if isIDCode(line) || strings.Contains(line, ":") {
		return false
	}
	if bareURL.MatchString(line) || anyYearPattern.MatchString(line) {
		return false
	}
	if !lettersOnly.MatchString(line) {
		return false
	}
	upper := strings.ToUpper(line)
	for _, word := range nameBlacklist {
		if strings.Contains(upper, word) {
			return false
		}
	}
	return true
}
