// internal/qrparse/models.go
package qrparse

// ParsedRecord holds the structured fields extracted from a decoded QR payload.
// All fields default to the empty string; the record is never mutated after
// Parse returns it.
type ParsedRecord struct {
	StudentName       string `json:"student_name"`
	IDCode            string `json:"id_code"`
	Score             string `json:"score"`
	Authority         string `json:"authority"`
	CertificateMarker string `json:"certificate_marker"`
	Year              string `json:"year"`
	ReferenceNumber   string `json:"reference_number"`
	URL               string `json:"url"`
	RawText           string `json:"raw_text"`
	ParseError        string `json:"parse_error,omitempty"`
}

// HasIdentity reports whether the payload carried at least one identifying field.
func (r ParsedRecord) HasIdentity() bool {
	return r.StudentName != "" || r.IDCode != ""
}
