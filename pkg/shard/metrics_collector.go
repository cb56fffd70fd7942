package shard

import (
	"context"
	"time"

	"github.com/cuemby/graphd/pkg/metrics"
)

// MetricsCollector periodically samples a Shard's gauges into
// pkg/metrics (chunk counts for this shard's namespace). Counters and
// histograms are updated inline by the operations that observe them
// (Write, Get, Compact, Sync, ...), not by this poller.
//
// This lives in pkg/shard rather than pkg/metrics so that pkg/metrics
// stays free of domain imports — only Shard depends on metrics, never
// the reverse.
type MetricsCollector struct {
	shard  *Shard
	stopCh chan struct{}
}

// NewMetricsCollector creates a metrics collector for one shard.
func NewMetricsCollector(s *Shard) *MetricsCollector {
	return &MetricsCollector{shard: s, stopCh: make(chan struct{})}
}

// Start begins periodic collection.
func (c *MetricsCollector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *MetricsCollector) Stop() {
	close(c.stopCh)
}

func (c *MetricsCollector) collect() {
	stats, err := c.shard.ChunkStats(context.Background())
	if err != nil {
		return
	}
	metrics.ChunksTotal.WithLabelValues(c.shard.cfg.Namespace).Set(float64(stats.ChunkCount))
}
