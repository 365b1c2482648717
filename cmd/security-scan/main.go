// cmd/security-scan/main.go
//
// Standalone security triage for PDF documents: structural inspection plus
// heuristic risk scoring, without the verification pipeline. Exits non-zero
// when any scanned document should be quarantined.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/docinspect"
	"cert-verifier/internal/riskscan"
)

func main() {
	var logLevel = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: security-scan [-log-level LEVEL] <file-or-directory>")
		os.Exit(2)
	}
	target := flag.Arg(0)

	zapLog := logger.New(*logLevel, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	scanner := riskscan.NewScanner(log)
	inspector := docinspect.NewInspector(log)

	paths, err := resolveTargets(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "no PDF documents found under %s\n", target)
		os.Exit(2)
	}

	quarantined := 0
	for _, path := range paths {
		assessment := scanOne(scanner, inspector, path)
		printAssessment(scanner, inspector, path, assessment)
		if riskscan.ShouldQuarantine(assessment) {
			quarantined++
		}
	}

	if len(paths) > 1 {
		fmt.Printf("\n%d of %d documents flagged for quarantine\n", quarantined, len(paths))
	}
	if quarantined > 0 {
		os.Exit(1)
	}
}

func scanOne(scanner *riskscan.Scanner, inspector *docinspect.Inspector, path string) riskscan.RiskAssessment {
	data, err := os.ReadFile(path)
	if err != nil {
		return riskscan.FailedAssessment(fmt.Sprintf("cannot read file: %v", err))
	}

	structural, err := inspector.InspectBytes(data)
	if err != nil {
		return riskscan.FailedAssessment(fmt.Sprintf("cannot inspect document: %v", err))
	}

	return scanner.Assess(data, structural)
}

func printAssessment(scanner *riskscan.Scanner, inspector *docinspect.Inspector, path string, a riskscan.RiskAssessment) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Printf("FILE: %s\n", path)
	fmt.Println("============================================================")

	if info, err := riskscan.FileInfoFor(path); err == nil {
		fmt.Printf("  Size:      %.2f MB\n", info.SizeMB)
		fmt.Printf("  SHA-256:   %s\n", info.SHA256)
	}

	fmt.Printf("  Risk:      %s (score %d)\n", a.Level, a.Score)
	fmt.Printf("  Action:    %s\n", a.Recommendation)

	if len(a.Threats) > 0 {
		fmt.Println("  Threats:")
		for _, t := range a.Threats {
			fmt.Printf("    - %s\n", t)
		}
	}

	meta := inspector.Metadata(path)
	if flags := scanner.ScanMetadata(meta); len(flags) > 0 {
		fmt.Println("  Metadata flags:")
		for _, f := range flags {
			fmt.Printf("    - %s\n", f)
		}
	}
}

func resolveTargets(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(target, e.Name()))
		}
	}
	return paths, nil
}
