// internal/report/indexer.go
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	apperrors "cert-verifier/internal/common/errors"
	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/pipeline"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indexer mirrors result rows into Elasticsearch for audit queries.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{client: client, index: index, logger: log}
}

// IndexRow writes one result row document keyed by its row ID.
func (i *Indexer) IndexRow(ctx context.Context, row pipeline.ResultRow) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: row.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index row: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index row: %s", res.Status())
	}
	return nil
}

// IndexBatch indexes every row; failures are logged per row and reported in
// aggregate.
func (i *Indexer) IndexBatch(ctx context.Context, rows []pipeline.ResultRow) error {
	failed := 0
	for _, row := range rows {
		if err := i.IndexRow(ctx, row); err != nil {
			failed++
			i.logger.Warn("failed to index result row", map[string]interface{}{
				"rowId": row.ID,
				"error": err.Error(),
			})
		}
	}
	if failed > 0 {
		return apperrors.New(apperrors.ErrCodeIndexWriteFailed,
			fmt.Sprintf("%d of %d rows failed to index", failed, len(rows)), true).
			WithMetadata("index", i.index)
	}
	return nil
}
