// internal/docinspect/inspector.go

// Package docinspect provides document structure introspection for the risk
// scanner and payload decoding contracts for the pipeline.
package docinspect

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/riskscan"

	"github.com/ledongthuc/pdf"
)

var (
	encryptMarker  = []byte("/Encrypt")
	acroFormMarker = []byte("/AcroForm")
	xfaMarker      = []byte("/XFA")
	uriAction      = regexp.MustCompile(`/URI\s*\(([^)]*)\)`)
)

// Inspector derives StructuralFindings from a document on disk.
type Inspector struct {
	logger logger.Logger
}

func NewInspector(log logger.Logger) *Inspector {
	return &Inspector{logger: log}
}

// Inspect reads the document and reports its structural characteristics. An
// encrypted document is a finding, not a failure; anything else that prevents
// parsing is returned as an error so the caller can fail closed.
func (i *Inspector) Inspect(path string) (riskscan.StructuralFindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return riskscan.StructuralFindings{}, fmt.Errorf("read %s: %w", path, err)
	}
	return i.InspectBytes(data)
}

// InspectBytes is Inspect over an in-memory document.
func (i *Inspector) InspectBytes(data []byte) (riskscan.StructuralFindings, error) {
	findings := riskscan.StructuralFindings{
		Encrypted: bytes.Contains(data, encryptMarker),
		HasForms:  bytes.Contains(data, acroFormMarker) || bytes.Contains(data, xfaMarker),
	}

	for _, m := range uriAction.FindAllSubmatch(data, -1) {
		findings.HasLinks = true
		findings.LinkURIs = append(findings.LinkURIs, string(m[1]))
	}

	pageCount, err := countPages(data)
	if err != nil {
		if findings.Encrypted {
			// The parser cannot open it without a password; the byte-level
			// findings are still valid and the scanner will penalize the
			// encryption on its own.
			findings.NeedsPassword = true
			return findings, nil
		}
		return findings, fmt.Errorf("parse document: %w", err)
	}

	findings.PageCount = pageCount
	return findings, nil
}

// countPages parses the document. The parser panics on some malformed inputs,
// which must surface as a plain error here.
func countPages(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// Metadata extracts the document information dictionary. Missing or
// unreadable metadata yields zero values rather than an error.
func (i *Inspector) Metadata(path string) riskscan.DocumentMetadata {
	data, err := os.ReadFile(path)
	if err != nil {
		return riskscan.DocumentMetadata{}
	}

	return readMetadata(data)
}

func readMetadata(data []byte) (meta riskscan.DocumentMetadata) {
	defer func() {
		if recover() != nil {
			meta = riskscan.DocumentMetadata{}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return riskscan.DocumentMetadata{}
	}

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return riskscan.DocumentMetadata{}
	}

	return riskscan.DocumentMetadata{
		Creator:          info.Key("Creator").Text(),
		Producer:         info.Key("Producer").Text(),
		Title:            info.Key("Title").Text(),
		Author:           info.Key("Author").Text(),
		Subject:          info.Key("Subject").Text(),
		CreationDate:     info.Key("CreationDate").Text(),
		ModificationDate: info.Key("ModDate").Text(),
	}
}
