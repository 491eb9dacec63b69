// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "timeline"

// Collector exports per-stream counters of a Timeline, and of its
// Reader once one is attached, as Prometheus metrics labeled by stream
// kind. Values are read at scrape time from the streams' atomic
// counters; producers pay nothing for being observed.
type Collector struct {
	timeline *Timeline

	mu     sync.Mutex
	reader *Reader

	bytesGenerated *prometheus.Desc
	finalized      *prometheus.Desc
	overwritten    *prometheus.Desc
	autoflushes    *prometheus.Desc
	pending        *prometheus.Desc
	readPackets    *prometheus.Desc
	readBytes      *prometheus.Desc
	readLost       *prometheus.Desc
}

// NewCollector returns a Collector for timeline. Register it with a
// prometheus.Registerer.
func NewCollector(timeline *Timeline) *Collector {
	labels := []string{"stream"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, nil)
	}
	return &Collector{
		timeline:       timeline,
		bytesGenerated: desc("bytes_generated_total", "Bytes of messages reserved by producers."),
		finalized:      desc("packets_finalized_total", "Packets made visible to the reader, by filling or flushing."),
		overwritten:    desc("packets_overwritten_total", "Packets recycled by producers before the reader consumed them."),
		autoflushes:    desc("autoflushes_total", "Flushes triggered by the autoflush tick."),
		pending:        desc("packets_pending", "Finalized packets not yet read."),
		readPackets:    desc("reader_packets_total", "Packets collected by the reader."),
		readBytes:      desc("reader_bytes_total", "Message bytes collected by the reader."),
		readLost:       desc("reader_packets_lost_total", "Packets the reader detected as lost."),
	}
}

// AttachReader adds reader counters to the exported metrics. A nil
// reader detaches.
func (c *Collector) AttachReader(reader *Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reader = reader
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesGenerated
	ch <- c.finalized
	ch <- c.overwritten
	ch <- c.autoflushes
	ch <- c.pending
	ch <- c.readPackets
	ch <- c.readBytes
	ch <- c.readLost
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, kind := range c.timeline.kinds {
		stats := c.timeline.streams[kind].Stats()
		label := kind.String()
		ch <- prometheus.MustNewConstMetric(c.bytesGenerated, prometheus.CounterValue, float64(stats.BytesGenerated), label)
		ch <- prometheus.MustNewConstMetric(c.finalized, prometheus.CounterValue, float64(stats.Finalized), label)
		ch <- prometheus.MustNewConstMetric(c.overwritten, prometheus.CounterValue, float64(stats.Overwritten), label)
		ch <- prometheus.MustNewConstMetric(c.autoflushes, prometheus.CounterValue, float64(stats.Autoflushes), label)
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(stats.Pending()), label)
	}

	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()
	if reader == nil {
		return
	}
	for _, stats := range reader.Stats() {
		label := stats.Kind.String()
		ch <- prometheus.MustNewConstMetric(c.readPackets, prometheus.CounterValue, float64(stats.Packets), label)
		ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(stats.Bytes), label)
		ch <- prometheus.MustNewConstMetric(c.readLost, prometheus.CounterValue, float64(stats.Lost), label)
	}
}
