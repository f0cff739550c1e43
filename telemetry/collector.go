package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/maxpert/marmot-pdm/vbucket"
)

// RegistryLister is the subset of vbucket.Registry the collector needs.
// A narrow interface, not *vbucket.Registry directly, so tests can supply
// a fake registry.
type RegistryLister interface {
	StatsAll(sink vbucket.StatsSink)
}

// statsSink adapts vbucket.Stats onto the package's Prometheus gauges,
// implementing vbucket.StatsSink.
type statsSink struct{}

func (statsSink) AddVBucketStats(st vbucket.Stats) {
	label := strconv.FormatUint(uint64(st.VBucketID), 10)
	HighPreparedSeqno.With(label).Set(float64(st.HighPreparedSeqno))
	HighCompletedSeqno.With(label).Set(float64(st.HighCompletedSeqno))
	TrackedWrites.With(label).Set(float64(st.NumTracked))
}

// MetricsCollector periodically walks a vbucket Registry and updates the
// durability-tracking gauges.
type MetricsCollector struct {
	registry RegistryLister
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(registry RegistryLister, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		registry: registry,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection.
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector.
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.registry == nil {
		return
	}
	mc.registry.StatsAll(statsSink{})
}
