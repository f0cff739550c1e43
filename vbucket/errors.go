package vbucket

import "fmt"

// InvalidArgumentError reports a caller contract violation (§7.1): a
// precondition of AddSyncWrite or the warmup constructor was violated. The
// operation is a no-op on State; no counters move.
type InvalidArgumentError struct {
	Op     string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("vbucket: %s: %s", e.Op, e.Reason)
}

// LogicError reports a protocol invariant violation (§7.2): an out-of-order
// completion, a completion against an empty Container, or a key mismatch.
// It carries the offending key and resolution for diagnostics.
type LogicError struct {
	Op         string
	Key        []byte
	Resolution string
	Reason     string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("vbucket: %s: %s for key %q: %s", e.Op, e.Resolution, e.Key, e.Reason)
}
