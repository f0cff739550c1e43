// Package vbucket implements the Passive Durability Monitor facade: the
// State it guards, the HPS advancement algorithm, rollback rebuild, and the
// external Handle contract the PDM uses to reach its owning vbucket.
package vbucket

import "github.com/maxpert/marmot-pdm/durability"

// ID identifies a partition ("vbucket") within the bucket.
type ID uint16

// Handle is the small set of capabilities the PDM needs from its owning
// vbucket (§6). The PDM never reaches into vbucket internals beyond this
// interface.
type Handle interface {
	// ID returns the partition identifier.
	ID() ID
	// State returns the replication-role string used in stats.
	State() string
	// PersistenceSeqno returns the highest seqno durably on local storage.
	// Non-decreasing over time.
	PersistenceSeqno() int64
	// SendSeqnoAck fires an outbound ack to the Active. Called strictly
	// outside the State lock.
	SendSeqnoAck(seqno int64)
}

// RollbackResult supplies the post-rollback target state and the prepares
// that must be re-tracked because their resolution was rolled back (§4.5).
// PreparesToAdd must be seqno-ordered ascending.
type RollbackResult struct {
	HighSeqno          int64
	HighPreparedSeqno  int64
	HighCompletedSeqno int64
	PreparesToAdd      []*durability.TrackedWrite
}

// Stats is the snapshot PassiveDurabilityMonitor.Stats emits for one
// vbucket (§4.6).
type Stats struct {
	VBucketID         ID
	VBucketState      string
	HighPreparedSeqno int64
	HighCompletedSeqno int64
	NumTracked        int
	NumAccepted       uint64
	NumCommitted      uint64
	NumAborted        uint64
}

// StatsSink receives one vbucket's Stats. Modeled on the original's
// AddStatFn: a simple callback, so the PDM never owns a stats transport.
type StatsSink interface {
	AddVBucketStats(Stats)
}
