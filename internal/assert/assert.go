// Package assert implements the process-level assertion checks the spec
// requires for internal-invariant violations (§6, §7.3): monotonicity
// breaches, a cursor pointing at an erased element, and rollback
// preconditions. These are programming errors, not recoverable runtime
// conditions, so they panic rather than return an error.
package assert

import "fmt"

// Expects panics with msg if cond is false. Named after the original
// implementation's Expects() macro (GSL-style contract assertion).
func Expects(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
