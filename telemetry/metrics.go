package telemetry

// Histogram bucket definitions for PDM-relevant latency and size profiles.
var (
	// AckLatencyBuckets for the duration of one transport SendAck call.
	AckLatencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

	// WarmupBuckets for per-vbucket rehydration duration.
	WarmupBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

// Durability Tracking Metrics
//
// Only HighPreparedSeqno, HighCompletedSeqno and TrackedWrites (set by
// MetricsCollector) and the ack bus's AcksSentTotal and AckSendSeconds (set
// by the gRPC and NATS transports) are updated by this module. The other
// metrics below are registered by InitMetrics, but no code in this module
// increments or observes them, so they stay at zero.
var (
	// HighPreparedSeqno tracks HPS per vbucket.
	HighPreparedSeqno GaugeVec = noopGaugeVec{}

	// HighCompletedSeqno tracks HCS per vbucket.
	HighCompletedSeqno GaugeVec = noopGaugeVec{}

	// TrackedWrites tracks the number of SyncWrites currently in flight
	// per vbucket.
	TrackedWrites GaugeVec = noopGaugeVec{}

	// SyncWritesAcceptedTotal counts AddSyncWrite calls by vbucket.
	SyncWritesAcceptedTotal CounterVec = noopCounterVec{}

	// SyncWritesCommittedTotal counts CompleteSyncWrite(commit) calls by
	// vbucket.
	SyncWritesCommittedTotal CounterVec = noopCounterVec{}

	// SyncWritesAbortedTotal counts CompleteSyncWrite(abort) calls by
	// vbucket.
	SyncWritesAbortedTotal CounterVec = noopCounterVec{}

	// InvalidArgumentErrorsTotal counts caller contract violations by
	// operation.
	InvalidArgumentErrorsTotal CounterVec = noopCounterVec{}

	// LogicErrorsTotal counts protocol invariant violations by
	// operation. A non-zero rate here means the Active and this replica
	// have disagreed about SyncWrite state.
	LogicErrorsTotal CounterVec = noopCounterVec{}

	// RollbacksTotal counts PostProcessRollback invocations.
	RollbacksTotal Counter = NoopStat{}
)

// Ack Bus Metrics
var (
	// AcksSentTotal counts outbound HPS acks by transport and result.
	AcksSentTotal CounterVec = noopCounterVec{}

	// AckSendSeconds measures ack send latency by transport.
	AckSendSeconds HistogramVec = noopHistogramVec{}

	// AckRetriesTotal counts ack send retries.
	AckRetriesTotal Counter = NoopStat{}
)

// Warmup Metrics
var (
	// WarmupVBucketsTotal counts vbuckets rehydrated by result.
	WarmupVBucketsTotal CounterVec = noopCounterVec{}

	// WarmupDurationSeconds measures per-vbucket rehydration duration.
	WarmupDurationSeconds Histogram = NoopStat{}

	// WarmupCacheHitsTotal counts prepare-cache hits during warmup.
	WarmupCacheHitsTotal Counter = NoopStat{}
)

// Subsystem names passed to the telemetry.go constructors, one per metric
// group below: each becomes a distinct `pdmd_<subsystem>_*` metric prefix,
// so an operator can scope a dashboard or alert to one concern of the PDM
// without label-matching on the metric name.
const (
	subsystemDurability = "durability"
	subsystemAckBus     = "ackbus"
	subsystemWarmup     = "warmup"
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	// Durability Tracking Metrics
	HighPreparedSeqno = NewGaugeVec(
		subsystemDurability,
		"high_prepared_seqno",
		"High prepared seqno per vbucket",
		[]string{"vbucket"},
	)
	HighCompletedSeqno = NewGaugeVec(
		subsystemDurability,
		"high_completed_seqno",
		"High completed seqno per vbucket",
		[]string{"vbucket"},
	)
	TrackedWrites = NewGaugeVec(
		subsystemDurability,
		"tracked_writes",
		"Number of SyncWrites currently tracked per vbucket",
		[]string{"vbucket"},
	)
	SyncWritesAcceptedTotal = NewCounterVec(
		subsystemDurability,
		"sync_writes_accepted_total",
		"Total SyncWrites accepted by vbucket",
		[]string{"vbucket"},
	)
	SyncWritesCommittedTotal = NewCounterVec(
		subsystemDurability,
		"sync_writes_committed_total",
		"Total SyncWrites committed by vbucket",
		[]string{"vbucket"},
	)
	SyncWritesAbortedTotal = NewCounterVec(
		subsystemDurability,
		"sync_writes_aborted_total",
		"Total SyncWrites aborted by vbucket",
		[]string{"vbucket"},
	)
	InvalidArgumentErrorsTotal = NewCounterVec(
		subsystemDurability,
		"invalid_argument_errors_total",
		"Caller contract violations by operation",
		[]string{"op"},
	)
	LogicErrorsTotal = NewCounterVec(
		subsystemDurability,
		"logic_errors_total",
		"Protocol invariant violations by operation",
		[]string{"op"},
	)
	RollbacksTotal = NewCounter(
		subsystemDurability,
		"rollbacks_total",
		"Total PostProcessRollback invocations",
	)

	// Ack Bus Metrics
	AcksSentTotal = NewCounterVec(
		subsystemAckBus,
		"acks_sent_total",
		"Outbound HPS acks by transport and result",
		[]string{"transport", "result"},
	)
	AckSendSeconds = NewHistogramVec(
		subsystemAckBus,
		"ack_send_seconds",
		"Ack send latency by transport",
		[]string{"transport"},
		AckLatencyBuckets,
	)
	AckRetriesTotal = NewCounter(
		subsystemAckBus,
		"ack_retries_total",
		"Total ack send retries",
	)

	// Warmup Metrics
	WarmupVBucketsTotal = NewCounterVec(
		subsystemWarmup,
		"warmup_vbuckets_total",
		"Vbuckets rehydrated by result",
		[]string{"result"},
	)
	WarmupDurationSeconds = NewHistogramWithBuckets(
		subsystemWarmup,
		"warmup_duration_seconds",
		"Per-vbucket rehydration duration in seconds",
		WarmupBuckets,
	)
	WarmupCacheHitsTotal = NewCounter(
		subsystemWarmup,
		"warmup_cache_hits_total",
		"Total prepare-cache hits during warmup",
	)
}
