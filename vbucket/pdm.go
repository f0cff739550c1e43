package vbucket

import (
	"fmt"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/internal/assert"
	"github.com/rs/zerolog/log"
)

// PassiveDurabilityMonitor tracks in-flight Prepares for one vbucket,
// decides when each is locally satisfied, and acks the Active accordingly
// (§1, §4.1). It holds no process-wide state: one instance per partition,
// owned by that partition's Handle.
type PassiveDurabilityMonitor struct {
	vb Handle
	s  *state
}

// New creates an empty PDM bound to vb. Both cursors start at End() with
// lastWriteSeqno 0.
func New(vb Handle) *PassiveDurabilityMonitor {
	return &PassiveDurabilityMonitor{vb: vb, s: newState()}
}

// NewWithOutstandingPrepares constructs a PDM pre-seeded with a
// seqno-ordered sequence of prepares recovered from disk at warmup. Any
// prepare whose timeout is still the protocol default is rejected: that
// signals the Active never sent an explicit timeout, a caller bug.
func NewWithOutstandingPrepares(vb Handle, outstandingPrepares []*durability.TrackedWrite) (*PassiveDurabilityMonitor, error) {
	pdm := New(vb)
	for _, w := range outstandingPrepares {
		if w.Timeout == durability.DefaultTimeout {
			return nil, &InvalidArgumentError{
				Op:     "NewWithOutstandingPrepares",
				Reason: fmt.Sprintf("prepare for key %q carries the default timeout sentinel", w.Key),
			}
		}
		pdm.s.container.PushBack(w)
	}
	return pdm, nil
}

// AddSyncWrite appends item to the Container tail (§4.1). HPS is not
// advanced here; it only moves on a snapshot-end or persistence event.
func (p *PassiveDurabilityMonitor) AddSyncWrite(item *durability.TrackedWrite) error {
	if item.Level == durability.LevelNone {
		return &InvalidArgumentError{Op: "AddSyncWrite", Reason: "Level::None"}
	}
	if item.Timeout == durability.DefaultTimeout {
		return &InvalidArgumentError{
			Op:     "AddSyncWrite",
			Reason: "timeout is default (explicit value should have been specified by Active node)",
		}
	}

	p.s.mu.Lock()
	if tail := p.s.container.Back(); tail != nil {
		assert.Expects(item.BySeqno > tail.Write().BySeqno,
			"AddSyncWrite: by-seqno must strictly increase: tail=%d new=%d", tail.Write().BySeqno, item.BySeqno)
	}
	p.s.container.PushBack(item)
	p.s.totalAccepted++
	p.s.mu.Unlock()
	return nil
}

// NotifySnapshotEndReceived records snapshotEnd and runs HPS advancement
// (§4.4). If HPS moved, exactly one ack is sent outside the State lock.
func (p *PassiveDurabilityMonitor) NotifySnapshotEndReceived(snapEnd int64) {
	persistenceSeqno := p.vb.PersistenceSeqno()

	p.s.mu.Lock()
	if snapEnd > p.s.snapshotEnd {
		p.s.snapshotEnd = snapEnd
	}
	prevHPS := p.s.highPreparedSeqno()
	p.s.updateHighPreparedSeqno(persistenceSeqno)
	newHPS := p.s.highPreparedSeqno()
	p.s.mu.Unlock()

	p.maybeAck(prevHPS, newHPS)
}

// NotifyLocalPersistence re-runs HPS advancement because the vbucket's
// persistence cursor may have moved (§4.1). Same dedup/ack contract.
func (p *PassiveDurabilityMonitor) NotifyLocalPersistence() {
	persistenceSeqno := p.vb.PersistenceSeqno()

	p.s.mu.Lock()
	prevHPS := p.s.highPreparedSeqno()
	p.s.updateHighPreparedSeqno(persistenceSeqno)
	newHPS := p.s.highPreparedSeqno()
	p.s.mu.Unlock()

	p.maybeAck(prevHPS, newHPS)
}

// maybeAck implements the ack-dedup contract (§5): only a strict HPS
// increase is acknowledged, and the ack fires strictly outside the lock.
func (p *PassiveDurabilityMonitor) maybeAck(prevHPS, newHPS int64) {
	if newHPS == prevHPS {
		return
	}
	assert.Expects(newHPS > prevHPS, "HPS must strictly increase to ack: prev=%d new=%d", prevHPS, newHPS)
	p.vb.SendSeqnoAck(newHPS)
}

// CompleteSyncWrite advances HCS by one position in response to the
// Active's resolution for key (§4.1). Contracts enforced: non-empty
// Container, an element waiting immediately after the HCS cursor, and an
// in-order key match.
func (p *PassiveDurabilityMonitor) CompleteSyncWrite(key []byte, res durability.Resolution) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if p.s.container.Empty() {
		return &LogicError{
			Op:         "CompleteSyncWrite",
			Key:        key,
			Resolution: res.String(),
			Reason:     "no tracked writes, but received a completion",
		}
	}

	next := p.s.hcs.Next(p.s.container)
	if next == nil {
		return &LogicError{
			Op:         "CompleteSyncWrite",
			Key:        key,
			Resolution: res.String(),
			Reason:     "no Prepare waiting for completion",
		}
	}

	// A hash mismatch proves inequality; a match still falls through to the
	// authoritative byte comparison, since a 64-bit hash collision is
	// possible. Both keys are hashed in full.
	if durability.KeyHash(next.Write().Key) != durability.KeyHash(key) || !next.Write().KeyEqual(key) {
		return &LogicError{
			Op:         "CompleteSyncWrite",
			Key:        key,
			Resolution: res.String(),
			Reason:     fmt.Sprintf("pending resolution for key %q, but received unexpected completion", next.Write().Key),
		}
	}

	// Update lastWriteSeqno before moving the iterator (§4.1): a caught
	// violation above never reaches here, so State can't half-update.
	p.s.hcs.AdvanceTo(next)

	p.s.checkForAndRemovePrepares()

	switch res {
	case durability.ResolutionCommit:
		p.s.totalCommitted++
	case durability.ResolutionAbort:
		p.s.totalAborted++
	case durability.ResolutionCompletionWasDeduped:
		// No counter moves.
	}
	return nil
}

// PostProcessRollback atomically rebuilds State after a storage rollback
// (§4.5), inside a single write-hold on State.
func (p *PassiveDurabilityMonitor) PostProcessRollback(result RollbackResult) {
	assert.Expects(result.HighCompletedSeqno <= result.HighPreparedSeqno,
		"rollback: HCS must be <= HPS: hcs=%d hps=%d", result.HighCompletedSeqno, result.HighPreparedSeqno)
	assert.Expects(result.HighPreparedSeqno <= result.HighSeqno,
		"rollback: HPS must be <= highSeqno: hps=%d highSeqno=%d", result.HighPreparedSeqno, result.HighSeqno)

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	// Reverse iteration over preparesToAdd, prepending each, preserves the
	// Container's ascending-seqno invariant (§4.5 step 1).
	for i := len(result.PreparesToAdd) - 1; i >= 0; i-- {
		w := result.PreparesToAdd[i]
		if w.BySeqno > result.HighCompletedSeqno {
			p.s.container.PushFront(w)
		}
	}

	// Truncate everything past the new high seqno (§4.5 step 2).
	if cut := p.s.container.FirstGreaterThan(result.HighSeqno); cut != nil {
		p.s.container.EraseFrom(cut)
	}

	// Force HCS to End() with the rolled-back watermark (§4.5 step 3).
	p.s.hcs.Reset(nil, result.HighCompletedSeqno)

	// Force HPS to the last surviving element with the rolled-back
	// watermark (§4.5 step 4): every in-flight prepare is locally
	// satisfied, since it came straight off disk.
	p.s.hps.Reset(p.s.container.Back(), result.HighPreparedSeqno)
}

// GetHighPreparedSeqno is a pure observer, taking only a read hold.
func (p *PassiveDurabilityMonitor) GetHighPreparedSeqno() int64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.highPreparedSeqno()
}

// GetHighCompletedSeqno is a pure observer, taking only a read hold.
func (p *PassiveDurabilityMonitor) GetHighCompletedSeqno() int64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.highCompletedSeqno()
}

// GetNumTracked returns the number of TrackedWrites currently in flight.
func (p *PassiveDurabilityMonitor) GetNumTracked() int {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.container.Len()
}

// GetNumAccepted returns the lifetime count of accepted SyncWrites.
func (p *PassiveDurabilityMonitor) GetNumAccepted() uint64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.totalAccepted
}

// GetNumCommitted returns the lifetime count of committed SyncWrites.
func (p *PassiveDurabilityMonitor) GetNumCommitted() uint64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.totalCommitted
}

// GetNumAborted returns the lifetime count of aborted SyncWrites.
func (p *PassiveDurabilityMonitor) GetNumAborted() uint64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.totalAborted
}

// Stats emits this vbucket's stats to sink (§4.6). Errors building stats
// are logged at WARN and never surfaced to the caller.
func (p *PassiveDurabilityMonitor) Stats(sink StatsSink) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("PassiveDurabilityMonitor.Stats: error building stats")
		}
	}()

	p.s.mu.RLock()
	st := Stats{
		VBucketID:          p.vb.ID(),
		VBucketState:       p.vb.State(),
		HighPreparedSeqno:  p.s.highPreparedSeqno(),
		HighCompletedSeqno: p.s.highCompletedSeqno(),
		NumTracked:         p.s.container.Len(),
		NumAccepted:        p.s.totalAccepted,
		NumCommitted:       p.s.totalCommitted,
		NumAborted:         p.s.totalAborted,
	}
	p.s.mu.RUnlock()

	sink.AddVBucketStats(st)
}

// String implements the one-line diagnostic form mandated by §4.6.
func (p *PassiveDurabilityMonitor) String() string {
	return fmt.Sprintf("PassiveDurabilityMonitor[%p] high_prepared_seqno:%d", p, p.GetHighPreparedSeqno())
}

// TrackedWriteView is a read-only snapshot of one in-flight Prepare, shaped
// for introspection surfaces that need structured fields rather than the
// prose of DebugDump.
type TrackedWriteView struct {
	Key     []byte
	BySeqno int64
	Level   string
	Timeout string
}

// TrackedWrites returns a snapshot of every Prepare currently tracked, in
// seqno order. Intended for admin introspection; never touched by the
// advancement algorithm itself.
func (p *PassiveDurabilityMonitor) TrackedWrites() []TrackedWriteView {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	views := make([]TrackedWriteView, 0, p.s.container.Len())
	for n := p.s.container.Begin(); n != nil; n = n.Next() {
		w := n.Write()
		views = append(views, TrackedWriteView{
			Key:     w.Key,
			BySeqno: w.BySeqno,
			Level:   w.Level.String(),
			Timeout: w.Timeout.String(),
		})
	}
	return views
}

// DebugDump renders the full tracked-write list for crash diagnostics,
// supplementing the terse String() form (§10.3).
func (p *PassiveDurabilityMonitor) DebugDump() string {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := fmt.Sprintf("PassiveDurabilityMonitor[%p] vb:%d hps:%d hcs:%d snapshotEnd:%d tracked:%d\n",
		p, p.vb.ID(), p.s.highPreparedSeqno(), p.s.highCompletedSeqno(), p.s.snapshotEnd, p.s.container.Len())
	for n := p.s.container.Begin(); n != nil; n = n.Next() {
		w := n.Write()
		out += fmt.Sprintf("  seqno:%d key:%q level:%s\n", w.BySeqno, w.Key, w.Level)
	}
	return out
}
