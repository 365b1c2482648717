// internal/refsource/cache.go
package refsource

import (
	"context"
	"encoding/json"
	"time"

	"cert-verifier/internal/common/logger"
	"cert-verifier/internal/reconcile"

	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"
)

const cacheKeyPrefix = "refsource:record:"

// recordSchema guards against stale or tampered cache entries: anything that
// does not validate is treated as a miss.
var recordSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name":              map[string]interface{}{"type": "string"},
		"score":             map[string]interface{}{"type": "string"},
		"reference_number":  map[string]interface{}{"type": "string"},
		"authority":         map[string]interface{}{"type": "string"},
		"document_type":     map[string]interface{}{"type": "string"},
		"career":            map[string]interface{}{"type": "string"},
		"registration_date": map[string]interface{}{"type": "string"},
	},
	"required":             []interface{}{"name"},
	"additionalProperties": false,
}

// RecordCache is a cache-aside store of fetched reference records.
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRecordCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RecordCache {
	return &RecordCache{client: client, ttl: ttl, logger: log}
}

// Get returns the cached record for url, if present and valid.
func (c *RecordCache) Get(ctx context.Context, url string) (reconcile.ReferenceRecord, bool) {
	val, err := c.client.Get(ctx, cacheKeyPrefix+url).Result()
	if err != nil {
		return reconcile.ReferenceRecord{}, false
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return reconcile.ReferenceRecord{}, false
	}

	schemaLoader := gojsonschema.NewGoLoader(recordSchema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil || !result.Valid() {
		c.logger.Warn("invalid cached reference record ignored", map[string]interface{}{
			"url": url,
		})
		return reconcile.ReferenceRecord{}, false
	}

	var record reconcile.ReferenceRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return reconcile.ReferenceRecord{}, false
	}
	return record, true
}

// Put stores a record. Cache failures are logged, never propagated.
func (c *RecordCache) Put(ctx context.Context, url string, record reconcile.ReferenceRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+url, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache reference record", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}
}
