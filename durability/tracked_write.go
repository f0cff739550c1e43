package durability

import "time"

// DefaultTimeout is the protocol default-timeout sentinel. A TrackedWrite
// built from a caller-supplied item must never carry this value: it signals
// that the Active never sent an explicit timeout, which is a caller bug.
const DefaultTimeout time.Duration = 0

// TrackedWrite wraps one outstanding Prepare. It is never mutated through
// field writes once constructed; replicas only ever read it until it is
// either acknowledged-and-completed (and removed by garbage collection) or
// discarded by a rollback.
type TrackedWrite struct {
	Key     []byte
	BySeqno int64
	Level   Level
	Timeout time.Duration
}

// KeyEqual reports whether other carries the same key bytes as this write.
func (w *TrackedWrite) KeyEqual(other []byte) bool {
	if len(w.Key) != len(other) {
		return false
	}
	for i := range w.Key {
		if w.Key[i] != other[i] {
			return false
		}
	}
	return true
}
