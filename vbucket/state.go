package vbucket

import (
	"sync"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/internal/assert"
)

// state is the single owner of the Container and its two cursors, guarded by
// a readers-writer lock (§3, §5). All mutators below assume the caller
// already holds mu for writing; observers take a read hold in pdm.go.
type state struct {
	mu sync.RWMutex

	container *durability.Container
	hps       *durability.Cursor
	hcs       *durability.Cursor

	snapshotEnd int64

	totalAccepted  uint64
	totalCommitted uint64
	totalAborted   uint64
}

func newState() *state {
	return &state{
		container: durability.NewContainer(),
		hps:       durability.NewCursor(),
		hcs:       durability.NewCursor(),
	}
}

// highPreparedSeqno and highCompletedSeqno read the two derived quantities.
// Callers must hold mu (either hold) when calling these.
func (s *state) highPreparedSeqno() int64 { return s.hps.LastWriteSeqno() }
func (s *state) highCompletedSeqno() int64 { return s.hcs.LastWriteSeqno() }

// eraseWithCursorReset erases n from the container, first repositioning any
// cursor currently referencing n to End() (§4.2's erase discipline).
func (s *state) eraseWithCursorReset(n *durability.Node) {
	if s.hps.Node() == n {
		s.hps.ResetToEnd()
	}
	if s.hcs.Node() == n {
		s.hcs.ResetToEnd()
	}
	s.container.Erase(n)
}

// checkForAndRemovePrepares implements §4.3: remove every element from the
// front whose BySeqno is <= min(HCS, HPS), stopping at the first survivor.
func (s *state) checkForAndRemovePrepares() {
	if s.container.Empty() {
		return
	}

	fence := s.highCompletedSeqno()
	if hps := s.highPreparedSeqno(); hps < fence {
		fence = hps
	}

	n := s.container.Begin()
	for n != nil && n.Write().BySeqno <= fence {
		next := n.Next()
		s.eraseWithCursorReset(n)
		n = next
	}
}

// updateHighPreparedSeqno implements the two-phase HPS advancement
// algorithm (§4.4), operating on persistenceSeqno captured by the caller
// before taking the write lock (the caller reads vb.PersistenceSeqno()
// outside of state so that state itself never calls back into the vbucket
// handle while holding its own lock).
func (s *state) updateHighPreparedSeqno(persistenceSeqno int64) {
	if s.container.Empty() {
		return
	}

	prevHPS := s.highPreparedSeqno()

	// Phase P (persistence-gated): a fully persisted snapshot satisfies
	// every Prepare it contains, regardless of level.
	if persistenceSeqno >= s.snapshotEnd {
		for {
			next := s.hps.Next(s.container)
			if next == nil || next.Write().BySeqno > s.snapshotEnd {
				break
			}
			s.hps.AdvanceTo(next)
		}
	}

	// Phase R (received-gated): advance past Majority-class prepares within
	// the received snapshot, stopping at the first unsatisfied
	// PersistToMajority durability-fence.
	for {
		next := s.hps.Next(s.container)
		if next == nil || next.Write().BySeqno > s.snapshotEnd {
			break
		}
		if next.Write().Level == durability.LevelPersistToMajority {
			break
		}
		s.hps.AdvanceTo(next)
	}

	if s.highPreparedSeqno() != prevHPS {
		assert.Expects(s.highPreparedSeqno() > prevHPS,
			"HPS must strictly increase: prev=%d new=%d", prevHPS, s.highPreparedSeqno())
		s.checkForAndRemovePrepares()
	}
}
