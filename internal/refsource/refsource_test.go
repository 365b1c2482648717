// internal/refsource/refsource_test.go
package refsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/reconcile"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestCache(t *testing.T) (*RecordCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRecordCache(client, time.Minute, logger.NewNoOpLogger()), mr
}

const portalPage = `<html><head><title>SIGED</title>
<script>var tracking = "nombre: FAKE";</script></head>
<body>
<h1>Certificado</h1>
<p>Nombre: JUAN CARLOS PEREZ LOPEZ</p>
<p>Promedio: 8.5</p>
<p>Folio: abc-123</p>
<p>Autoridad Emisora: SECRETARIA DE EDUCACION PUBLICA</p>
<p>Tipo de Documento: CERTIFICADO DE BACHILLERATO</p>
<p>Carrera: INFORMATICA</p>
<p>Fecha de Registro en SIGED: 2023-01-15</p>
</body></html>`

// ==========================
// URL Classifier Tests
// ==========================

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantClass Classification
		wantValid bool
	}{
		{"official portal", "https://siged.sep.gob.mx/certificado/abc", ClassOfficial, true},
		{"official portal with www", "https://www.siged.sep.gob.mx/c/x", ClassOfficial, true},
		{"fraud gob.uk", "https://siged.sep.gob.uk/c/x", ClassFraud, false},
		{"fraud gov.com", "https://certificados.gov.com/c/x", ClassFraud, false},
		{"fraud sep.com lookalike", "https://portal.sep.com/c/x", ClassFraud, false},
		{"fraud siged.com", "https://siged.com/c/x", ClassFraud, false},
		{"other state portal", "https://certificados.edomex.gob.mx/v/x", ClassOtherState, false},
		{"unknown domain", "https://example.com/c/x", ClassUnknown, false},
		{"loopback address", "http://127.0.0.1/c/x", ClassSuspicious, false},
		{"private address", "http://192.168.1.10/c/x", ClassSuspicious, false},
		{"ftp scheme", "ftp://siged.sep.gob.mx/c/x", ClassInvalid, false},
		{"no scheme", "siged.sep.gob.mx/c/x", ClassInvalid, false},
	}

	classifier := NewClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := classifier.Classify(tt.url)
			assert.Equal(t, tt.wantClass, check.Classification)
			assert.Equal(t, tt.wantValid, check.Valid)
		})
	}
}

func TestClassifier_ExtraDomains(t *testing.T) {
	classifier := NewClassifier([]string{"validador.interno.gob.mx"})

	check := classifier.Classify("https://validador.interno.gob.mx/c/x")

	assert.True(t, check.Valid)
	assert.Equal(t, ClassOfficial, check.Classification)
}

// ==========================
// Record Extraction Tests
// ==========================

func TestExtractRecord(t *testing.T) {
	text := "Nombre: MARIA LOPEZ\nPromedio: 9.1\nFolio: f-1\nNombre: SEGUNDO NOMBRE"

	record := ExtractRecord(text)

	assert.Equal(t, "MARIA LOPEZ", record.Name)
	assert.Equal(t, "9.1", record.Score)
	assert.Equal(t, "f-1", record.ReferenceNumber)
}

func TestExtractRecord_NoLabels(t *testing.T) {
	record := ExtractRecord("nothing useful here")

	assert.True(t, record.IsEmpty())
}

// ==========================
// Fetcher Tests
// ==========================

func TestFetcher_Fetch_ParsesPortalPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(portalPage))
	}))
	defer server.Close()

	// The test server host is not on the allowlist, so widen it.
	classifier := NewClassifier([]string{serverHost(t, server)})
	fetcher := NewFetcher(classifier, nil, []int{2}, "", logger.NewNoOpLogger())

	record, err := fetcher.Fetch(context.Background(), server.URL+"/certificado/abc")

	assert.NoError(t, err)
	assert.Equal(t, "JUAN CARLOS PEREZ LOPEZ", record.Name)
	assert.Equal(t, "8.5", record.Score)
	assert.Equal(t, "abc-123", record.ReferenceNumber)
	assert.Equal(t, "SECRETARIA DE EDUCACION PUBLICA", record.Authority)
	assert.Equal(t, "CERTIFICADO DE BACHILLERATO", record.DocumentType)
	assert.Equal(t, "INFORMATICA", record.Career)
	assert.Equal(t, "2023-01-15", record.RegistrationDate)
}

func TestFetcher_Fetch_RefusesUntrustedURL(t *testing.T) {
	fetcher := NewFetcher(NewClassifier(nil), nil, []int{1}, "", logger.NewNoOpLogger())

	_, err := fetcher.Fetch(context.Background(), "https://siged.com/c/x")

	assert.ErrorIs(t, err, ErrUntrustedSource)
}

func TestFetcher_Fetch_RetriesThenFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	classifier := NewClassifier([]string{serverHost(t, server)})
	fetcher := NewFetcher(classifier, nil, []int{1, 1, 1}, "", logger.NewNoOpLogger())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/c/x")

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestFetcher_Fetch_UsesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(portalPage))
	}))
	defer server.Close()

	cache, _ := newTestCache(t)
	classifier := NewClassifier([]string{serverHost(t, server)})
	fetcher := NewFetcher(classifier, cache, []int{2}, "", logger.NewNoOpLogger())

	url := server.URL + "/certificado/abc"
	first, err := fetcher.Fetch(context.Background(), url)
	assert.NoError(t, err)

	second, err := fetcher.Fetch(context.Background(), url)
	assert.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

// ==========================
// Cache Tests
// ==========================

func TestRecordCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	record := reconcile.ReferenceRecord{Name: "JUAN PEREZ", Score: "8.5"}

	cache.Put(context.Background(), "https://siged.sep.gob.mx/c/x", record)
	got, ok := cache.Get(context.Background(), "https://siged.sep.gob.mx/c/x")

	assert.True(t, ok)
	assert.Equal(t, record, got)
}

func TestRecordCache_MissOnUnknownKey(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok := cache.Get(context.Background(), "https://siged.sep.gob.mx/c/missing")

	assert.False(t, ok)
}

func TestRecordCache_RejectsMalformedEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Set(cacheKeyPrefix+"https://siged.sep.gob.mx/c/x", `{"name": 42, "bogus": true}`)

	_, ok := cache.Get(context.Background(), "https://siged.sep.gob.mx/c/x")

	assert.False(t, ok)
}

func TestRecordCache_RejectsNonJSONEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Set(cacheKeyPrefix+"https://siged.sep.gob.mx/c/x", "not json")

	_, ok := cache.Get(context.Background(), "https://siged.sep.gob.mx/c/x")

	assert.False(t, ok)
}

// serverHost extracts host:port from an httptest server URL.
func serverHost(t *testing.T, server *httptest.Server) string {
	t.Helper()
	return server.Listener.Addr().String()
}
