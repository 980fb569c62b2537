package services

import (
	"encoding/hex"
	"encoding/json"
	"hash/fnv"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/minifig-tracker/internal/metrics"
	"github.com/codyseavey/minifig-tracker/internal/models"
)

const defaultChartCacheSize = 128

// ChartCache keeps recently built price charts. Entries are keyed by the
// record id plus a fingerprint of its price fields, so a refreshed record
// never hits a stale chart and nothing needs invalidating.
// A nil *ChartCache builds every chart on demand.
type ChartCache struct {
	cache *lru.Cache[string, models.PriceChart]
}

// NewChartCache creates a chart cache holding up to size charts
func NewChartCache(size int) *ChartCache {
	if size <= 0 {
		size = defaultChartCacheSize
	}

	cache, err := lru.New[string, models.PriceChart](size)
	if err != nil {
		log.Printf("Chart cache: failed to create cache: %v", err)
		return nil
	}
	return &ChartCache{cache: cache}
}

// Get returns the chart of record, building and caching it on a miss
func (c *ChartCache) Get(record models.Record) models.PriceChart {
	if c == nil {
		return buildChart(record)
	}

	key := chartKey(record)
	if chart, ok := c.cache.Get(key); ok {
		metrics.ChartCacheHits.Inc()
		return chart
	}

	metrics.ChartCacheMisses.Inc()
	chart := buildChart(record)
	c.cache.Add(key, chart)
	return chart
}

// Len returns the number of cached charts
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func buildChart(record models.Record) models.PriceChart {
	return models.BuildPriceChart(record.PriceHistory(), record.CurrentValue())
}

func chartKey(record models.Record) string {
	h := fnv.New64a()
	for _, field := range []string{models.FieldPriceHistory, models.FieldCurrentValue} {
		if v, ok := record[field]; ok {
			raw, _ := json.Marshal(v)
			h.Write(raw)
		}
		h.Write([]byte{0})
	}
	return record.ID() + ":" + hex.EncodeToString(h.Sum(nil))
}
