// internal/qrparse/parser_test.go
package qrparse

import (
	"strings"
	"testing"

	"cert-verifier/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func newParser() *Parser {
	return NewParser("", logger.NewNoOpLogger())
}

const samplePayload = `CERTIFICADO DE ESTUDIOS
Alumno: JUAN CARLOS PEREZ LOPEZ
CURP del alumno: PELJ000615HDFRPN09
Promedio: 8.5
Autoridad: SECRETARIA DE EDUCACION
2019-2022
https://siged.sep.gob.mx/certificados/a1b2c3d4-e5f6`

// ==========================
// Core Functionality Tests
// ==========================

func TestParser_Parse_LabeledPayload(t *testing.T) {
	record := newParser().Parse(samplePayload)

	assert.Equal(t, "JUAN CARLOS PEREZ LOPEZ", record.StudentName)
	assert.Equal(t, "PELJ000615HDFRPN09", record.IDCode)
	assert.Equal(t, "8.5", record.Score)
	assert.Equal(t, "SECRETARIA DE EDUCACION", record.Authority)
	assert.Equal(t, "2019-2022", record.Year)
	assert.Equal(t, "https://siged.sep.gob.mx/certificados/a1b2c3d4-e5f6", record.URL)
	assert.Equal(t, "a1b2c3d4-e5f6", record.ReferenceNumber)
	assert.Equal(t, DefaultCertificateMarker, record.CertificateMarker)
	assert.Empty(t, record.ParseError)
}

func TestParser_Parse_FieldExtraction(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		validate func(t *testing.T, r ParsedRecord)
	}{
		{
			name:    "anchor href preferred over bare URL text",
			payload: `<a href="https://siged.sep.gob.mx/certificado/deadbeef">https://otro.example.com/x</a>`,
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "https://siged.sep.gob.mx/certificado/deadbeef", r.URL)
				assert.Equal(t, "deadbeef", r.ReferenceNumber)
			},
		},
		{
			name:    "first URL wins when duplicated",
			payload: "https://siged.sep.gob.mx/c/aaaa1111\nhttps://siged.sep.gob.mx/c/bbbb2222",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "https://siged.sep.gob.mx/c/aaaa1111", r.URL)
				assert.Equal(t, "aaaa1111", r.ReferenceNumber)
			},
		},
		{
			name:    "query string stripped from reference number",
			payload: "https://siged.sep.gob.mx/c/a1b2-c3d4?lang=es",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "a1b2-c3d4", r.ReferenceNumber)
			},
		},
		{
			name:    "explicit folio label overrides nothing already set from URL",
			payload: "https://siged.sep.gob.mx/c/abc123\nFolio: XYZ-999",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "abc123", r.ReferenceNumber)
			},
		},
		{
			name:    "folio label without URL",
			payload: "Folio: F-2023-8841",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "F-2023-8841", r.ReferenceNumber)
				assert.Empty(t, r.URL)
			},
		},
		{
			name:    "leading dash marker stripped",
			payload: "- Alumno: MARIA GUADALUPE SANTOS\n- Promedio: 9.2",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "MARIA GUADALUPE SANTOS", r.StudentName)
				assert.Equal(t, "9.2", r.Score)
			},
		},
		{
			name:    "carriage returns treated as line breaks",
			payload: "Alumno: PEDRO INFANTE CRUZ\rPromedio: 7.8",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "PEDRO INFANTE CRUZ", r.StudentName)
				assert.Equal(t, "7.8", r.Score)
			},
		},
		{
			name:    "bare id code line",
			payload: "certificado\nGOMC950712MDFLRR08",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "GOMC950712MDFLRR08", r.IDCode)
			},
		},
		{
			name:    "lowercase id code stored uppercase",
			payload: "gomc950712mdflrr08",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "GOMC950712MDFLRR08", r.IDCode)
			},
		},
		{
			name:    "labeled id code failing grammar is discarded",
			payload: "CURP del alumno: NOTACURP123",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Empty(t, r.IDCode)
			},
		},
		{
			name:    "single year accepted",
			payload: "Alumno: ROSA MARIA TELLEZ\n2021",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "2021", r.Year)
			},
		},
		{
			name:    "first year wins",
			payload: "2019-2022\n2023",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "2019-2022", r.Year)
			},
		},
		{
			name:    "free-standing name accepted",
			payload: "ANA SOFIA RAMIREZ GODÍNEZ",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Equal(t, "ANA SOFIA RAMIREZ GODÍNEZ", r.StudentName)
			},
		},
		{
			name:    "institutional words rejected as names",
			payload: "UNIVERSIDAD AUTONOMA METROPOLITANA",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Empty(t, r.StudentName)
			},
		},
		{
			name:    "short line rejected as name",
			payload: "ANA LOPEZ",
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Empty(t, r.StudentName)
			},
		},
		{
			name:    "long line rejected as name",
			payload: strings.Repeat("A B ", 25),
			validate: func(t *testing.T, r ParsedRecord) {
				assert.Empty(t, r.StudentName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, newParser().Parse(tt.payload))
		})
	}
}

// ==========================
// Post-Pass Correction Tests
// ==========================

func TestParser_Parse_ImplicitCertificateMarker(t *testing.T) {
	record := newParser().Parse("Alumno: JOSE LUIS MORENO VEGA")

	assert.Equal(t, DefaultCertificateMarker, record.CertificateMarker)
}

func TestParser_Parse_NameMovedToIDCode(t *testing.T) {
	// An unlabeled id code can slip through the free-name heuristic when it
	// arrives on a line the name branch reaches first in a crafted payload.
	p := newParser()
	record := p.Parse("Alumno: GOMC950712MDFLRR08")

	assert.Equal(t, "GOMC950712MDFLRR08", record.IDCode)
	assert.Empty(t, record.StudentName)
}

func TestParser_Parse_NameMoveKeepsExistingIDCode(t *testing.T) {
	record := newParser().Parse("CURP del alumno: PELJ000615HDFRPN09\nAlumno: GOMC950712MDFLRR08")

	assert.Equal(t, "PELJ000615HDFRPN09", record.IDCode)
	assert.Empty(t, record.StudentName)
}

func TestParser_Parse_CustomMarker(t *testing.T) {
	p := NewParser("PRESENT", logger.NewNoOpLogger())
	record := p.Parse("CERTIFICADO DE BACHILLERATO")

	assert.Equal(t, "PRESENT", record.CertificateMarker)
}

// ==========================
// Edge Case Tests
// ==========================

func TestParser_Parse_EmptyPayload(t *testing.T) {
	record := newParser().Parse("")

	assert.Empty(t, record.StudentName)
	assert.Empty(t, record.IDCode)
	assert.Empty(t, record.URL)
	assert.Empty(t, record.CertificateMarker)
	assert.Empty(t, record.ParseError)
}

func TestParser_Parse_UnrecognizablePayload(t *testing.T) {
	record := newParser().Parse("?????\n12345\n!!!")

	assert.Empty(t, record.ParseError)
	assert.False(t, record.HasIdentity())
	assert.Equal(t, "?????\n12345\n!!!", record.RawText)
}

func TestParser_Parse_FirstMatchWinsPerField(t *testing.T) {
	record := newParser().Parse("Alumno: PRIMERO SEGUNDO TERCERO\nAlumno: OTRO NOMBRE DISTINTO")

	assert.Equal(t, "PRIMERO SEGUNDO TERCERO", record.StudentName)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkParser_Parse(b *testing.B) {
	p := NewParser("", logger.NewNoOpLogger())
	for i := 0; i < b.N; i++ {
		p.Parse(samplePayload)
	}
}
