// internal/report/writer.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cert-verifier/internal/pipeline"
)

// batchReport is the JSON file layout.
type batchReport struct {
	Summary pipeline.BatchSummary `json:"summary"`
	Results []pipeline.ResultRow  `json:"results"`
}

// WriteJSON writes the batch report to outputDir and returns the file path.
func WriteJSON(outputDir string, rows []pipeline.ResultRow, summary pipeline.BatchSummary) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(batchReport{Summary: summary, Results: rows}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("verification_%s.json", summary.BatchID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
