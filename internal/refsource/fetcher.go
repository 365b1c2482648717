// internal/refsource/fetcher.go
package refsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	apperrors "cert-verifier/internal/common/errors"
	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/common/metrics"
	"cert-verifier/internal/reconcile"

	"golang.org/x/net/html"
)

// ErrUntrustedSource is returned when the URL classification forbids a fetch.
var ErrUntrustedSource = errors.New("untrusted reference source")

// DefaultTimeoutsSeconds is the escalating attempt ladder used when config
// does not override it.
var DefaultTimeoutsSeconds = []int{8, 14, 18}

const defaultUserAgent = "cert-verifier/1.0"

// portalLabel binds a label fragment on the portal page to a record field.
// Matching is contains-based and first-match-wins, in this order.
type portalLabel struct {
	Fragment string
	Pattern  *regexp.Regexp
	Assign   func(r *reconcile.ReferenceRecord, v string)
}

var portalLabels = []portalLabel{
	{"nombre:", regexp.MustCompile(`(?i)nombre:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.Name = v }},
	{"promedio:", regexp.MustCompile(`(?i)promedio:\s*(\d+\.?\d*)`),
		func(r *reconcile.ReferenceRecord, v string) { r.Score = v }},
	{"folio:", regexp.MustCompile(`(?i)folio:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.ReferenceNumber = v }},
	{"autoridad emisora:", regexp.MustCompile(`(?i)autoridad emisora:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.Authority = v }},
	{"tipo de documento:", regexp.MustCompile(`(?i)tipo de documento:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.DocumentType = v }},
	{"carrera:", regexp.MustCompile(`(?i)carrera:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.Career = v }},
	{"fecha de registro en siged:", regexp.MustCompile(`(?i)fecha de registro en siged:\s*(.+)`),
		func(r *reconcile.ReferenceRecord, v string) { r.RegistrationDate = v }},
}

// Fetcher retrieves reference records over plain HTTP with an escalating
// timeout ladder per URL.
type Fetcher struct {
	client     *http.Client
	classifier *Classifier
	cache      *RecordCache
	timeouts   []time.Duration
	userAgent  string
	logger     logger.Logger
}

// NewFetcher builds a Fetcher. cache may be nil when no Redis backend is
// configured; timeoutsSeconds falls back to the default ladder when empty.
func NewFetcher(classifier *Classifier, cache *RecordCache, timeoutsSeconds []int, userAgent string, log logger.Logger) *Fetcher {
	if len(timeoutsSeconds) == 0 {
		timeoutsSeconds = DefaultTimeoutsSeconds
	}
	timeouts := make([]time.Duration, len(timeoutsSeconds))
	for i, s := range timeoutsSeconds {
		timeouts[i] = time.Duration(s) * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		client:     &http.Client{},
		classifier: classifier,
		cache:      cache,
		timeouts:   timeouts,
		userAgent:  userAgent,
		logger:     log,
	}
}

// Fetch retrieves the reference record behind url. Only URLs classified
// OFFICIAL are fetched; everything else fails without network access.
func (f *Fetcher) Fetch(ctx context.Context, url string) (reconcile.ReferenceRecord, error) {
	check := f.classifier.Classify(url)
	if !check.Valid {
		f.logger.Warn("reference source rejected", map[string]interface{}{
			"url":            url,
			"classification": string(check.Classification),
			"reason":         check.Reason,
		})
		return reconcile.ReferenceRecord{},
			fmt.Errorf("%w: %s (%s)", ErrUntrustedSource, check.Classification, check.Reason)
	}

	if f.cache != nil {
		if record, ok := f.cache.Get(ctx, url); ok {
			f.logger.Debug("reference record from cache", map[string]interface{}{"url": url})
			return record, nil
		}
	}

	var lastErr error
	for attempt, timeout := range f.timeouts {
		record, err := f.fetchOnce(ctx, url, timeout)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("success").Inc()
			if f.cache != nil && !record.IsEmpty() {
				f.cache.Put(ctx, url, record)
			}
			return record, nil
		}
		lastErr = err
		metrics.FetchAttempts.WithLabelValues("failure").Inc()
		f.logger.Warn("reference fetch attempt failed", map[string]interface{}{
			"url":     url,
			"attempt": attempt + 1,
			"timeout": timeout.String(),
			"error":   err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return reconcile.ReferenceRecord{},
			apperrors.New(apperrors.ErrCodeReferenceFetchTimeout,
				fmt.Sprintf("all %d attempts timed out for %s", len(f.timeouts), url), true)
	}
	return reconcile.ReferenceRecord{}, apperrors.NewFetchError(url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, timeout time.Duration) (reconcile.ReferenceRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return reconcile.ReferenceRecord{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return reconcile.ReferenceRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return reconcile.ReferenceRecord{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return reconcile.ReferenceRecord{}, err
	}

	return ExtractRecord(htmlToText(body)), nil
}

// ExtractRecord pulls labeled certificate fields out of the portal page text,
// first match per field.
func ExtractRecord(text string) reconcile.ReferenceRecord {
	var record reconcile.ReferenceRecord
	assigned := make(map[string]bool, len(portalLabels))

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, label := range portalLabels {
			if assigned[label.Fragment] || !strings.Contains(lower, label.Fragment) {
				continue
			}
			if m := label.Pattern.FindStringSubmatch(line); m != nil {
				label.Assign(&record, strings.TrimSpace(m[1]))
				assigned[label.Fragment] = true
			}
			break
		}
	}
	return record
}

// htmlToText flattens an HTML document into newline-separated text, skipping
// script and style content.
func htmlToText(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return string(body)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
