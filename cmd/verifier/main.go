// cmd/verifier/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cert-verifier/internal/common/config"
	"cert-verifier/internal/common/database"
	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/docinspect"
	"cert-verifier/internal/pipeline"
	"cert-verifier/internal/qrparse"
	"cert-verifier/internal/reconcile"
	"cert-verifier/internal/refsource"
	"cert-verifier/internal/report"
	"cert-verifier/internal/riskscan"
)

func main() {
	var (
		inputDir = flag.String("input", "", "directory with certificate PDFs to verify (required)")
		workers  = flag.Int("workers", 0, "worker pool size (0 = config/default)")
	)
	flag.Parse()

	if *inputDir == "" {
		fmt.Fprintln(os.Stderr, "usage: verifier -input <directory> [-workers N]")
		os.Exit(2)
	}

	// --- Init Logger ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting certificate verifier",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the batch on the first signal, hard-exit on the second.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		zapLog.Info("Shutdown signal received, cancelling batch...")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	// --- Init PostgreSQL with retry (optional) ---
	var store *report.Store
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		store = report.NewStore(pg.DB, log)
		zapLog.Info("PostgreSQL connected successfully")
	} else {
		zapLog.Info("PostgreSQL disabled, results will not be persisted")
	}

	// --- Init Elasticsearch with retry (optional) ---
	var indexer *report.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = report.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch disabled, results will not be indexed")
	}

	// --- Init Redis with retry (optional, reference-record cache) ---
	var cache *refsource.RecordCache
	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		ttl := time.Duration(cfg.Fetch.CacheTTLMinutes) * time.Minute
		cache = refsource.NewRecordCache(rdb.Client, ttl, log)
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Info("Redis disabled, reference lookups will not be cached")
	}

	// --- Metrics Server ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("addr", cfg.Pipeline.MetricsAddr))
		if err := http.ListenAndServe(cfg.Pipeline.MetricsAddr, mux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Build Pipeline ---
	classifier := refsource.NewClassifier(cfg.Fetch.ExtraDomains)
	fetcher := refsource.NewFetcher(classifier, cache, cfg.Fetch.TimeoutsSeconds, cfg.Fetch.UserAgent, log)

	poolSize := cfg.Pipeline.MaxWorkers
	if *workers > 0 {
		poolSize = *workers
	}

	orchestrator := pipeline.New(
		riskscan.NewScanner(log),
		docinspect.NewInspector(log),
		docinspect.NewSidecarRenderer(),
		qrparse.NewParser(cfg.Pipeline.CertificateMarker, log),
		reconcile.NewEngine(log),
		fetcher,
		poolSize,
		log,
	)

	paths, err := collectDocuments(*inputDir)
	if err != nil {
		zapLog.Fatal("failed to scan input directory", zap.Error(err))
	}
	if len(paths) == 0 {
		zapLog.Warn("no PDF documents found", zap.String("dir", *inputDir))
	}

	// --- Run Batch ---
	rows, summary := orchestrator.ProcessBatch(ctx, paths)

	// --- Persist Results ---
	if cfg.Reports.JSONEnabled {
		path, err := report.WriteJSON(cfg.Reports.OutputDir, rows, summary)
		if err != nil {
			zapLog.Error("failed to write JSON report", zap.Error(err))
		} else {
			zapLog.Info("JSON report written", zap.String("path", path))
		}
	}
	if store != nil {
		if err := store.SaveBatch(ctx, rows, summary); err != nil {
			zapLog.Error("failed to persist batch", zap.Error(err))
		}
	}
	if indexer != nil {
		if err := indexer.IndexBatch(ctx, rows); err != nil {
			zapLog.Error("failed to index batch", zap.Error(err))
		}
	}

	printSummary(summary)

	zapLog.Info("Batch complete",
		zap.String("batchId", summary.BatchID),
		zap.Int("documents", summary.Documents),
		zap.Int("valid", summary.Valid),
		zap.Int("possibleForgeries", summary.PossibleForgeries),
		zap.Int("quarantined", summary.Quarantined),
		zap.Duration("duration", summary.Duration),
	)
}

// collectDocuments returns the PDF paths under dir in lexical order.
func collectDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(s pipeline.BatchSummary) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Printf("BATCH %s\n", s.BatchID)
	fmt.Println("============================================================")
	fmt.Printf("  Documents processed:   %d\n", s.Documents)
	fmt.Printf("  QR payloads found:     %d\n", s.Payloads)
	fmt.Printf("  Valid:                 %d\n", s.Valid)
	fmt.Printf("  Partially valid:       %d\n", s.PartiallyValid)
	fmt.Printf("  Possible forgeries:    %d\n", s.PossibleForgeries)
	fmt.Printf("  Quarantined:           %d\n", s.Quarantined)
	fmt.Printf("  No QR payload:         %d\n", s.NoPayload)
	fmt.Printf("  Duration:              %s\n", s.Duration.Round(time.Millisecond))
	fmt.Println("============================================================")
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operationName, maxRetries, err)
}
