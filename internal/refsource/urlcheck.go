// internal/refsource/urlcheck.go

// Package refsource retrieves authoritative certificate records from the
// issuing portal, with URL trust classification and a validated cache in
// front of the network.
package refsource

import (
	"net"
	"net/url"
	"strings"
)

// Classification grades how much a certificate URL can be trusted.
type Classification string

const (
	ClassOfficial   Classification = "OFFICIAL"
	ClassFraud      Classification = "FRAUD"
	ClassOtherState Classification = "OTHER_STATE"
	ClassSuspicious Classification = "SUSPICIOUS"
	ClassUnknown    Classification = "UNKNOWN"
	ClassInvalid    Classification = "INVALID"
)

// URLCheck is the classifier output.
type URLCheck struct {
	Valid          bool           `json:"valid"`
	Reason         string         `json:"reason"`
	Classification Classification `json:"classification"`
}

// Official portals whose records may be fetched.
var allowedDomains = map[string]bool{
	"siged.sep.gob.mx":     true,
	"www.siged.sep.gob.mx": true,
}

// Portals of other states; legitimate but outside this verifier's mandate,
// so they are flagged for manual review instead of fetched.
var stateDomains = map[string]bool{
	"certificados.edomex.gob.mx": true,
	"validacion.jalisco.gob.mx":  true,
	"certificados.nl.gob.mx":     true,
}

// Known look-alike fragments used in forged certificate URLs.
var fraudPatterns = []string{
	".gob.uk",
	".gov.com",
	".sep.com",
	"siged.com",
}

// Classifier validates certificate URLs before any network access.
type Classifier struct {
	extraDomains map[string]bool
}

// NewClassifier builds a Classifier; extraDomains widen the official
// allowlist (from config) without touching the built-in sets.
func NewClassifier(extraDomains []string) *Classifier {
	extra := make(map[string]bool, len(extraDomains))
	for _, d := range extraDomains {
		extra[strings.ToLower(d)] = true
	}
	return &Classifier{extraDomains: extra}
}

// Classify grades a URL. Only an OFFICIAL result is valid to fetch.
func (c *Classifier) Classify(rawURL string) URLCheck {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return URLCheck{Reason: "invalid scheme", Classification: ClassInvalid}
	}

	domain := strings.ToLower(parsed.Host)
	host := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		host = h
	}

	// Operator-configured domains are trusted ahead of the heuristics.
	if c.extraDomains[domain] {
		return URLCheck{Valid: true, Reason: "approved official domain", Classification: ClassOfficial}
	}

	if isPrivateIP(host) {
		return URLCheck{Reason: "private address", Classification: ClassSuspicious}
	}

	for _, pattern := range fraudPatterns {
		if strings.Contains(domain, pattern) {
			return URLCheck{
				Reason:         "fraud pattern: " + pattern,
				Classification: ClassFraud,
			}
		}
	}

	if allowedDomains[domain] {
		return URLCheck{Valid: true, Reason: "approved official domain", Classification: ClassOfficial}
	}

	if stateDomains[domain] {
		return URLCheck{Reason: "portal of another state", Classification: ClassOtherState}
	}

	return URLCheck{Reason: "unrecognized domain", Classification: ClassUnknown}
}

func isPrivateIP(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
