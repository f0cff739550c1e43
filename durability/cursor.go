package durability

// Cursor is an (iterator, lastWriteSeqno) pair maintained as a pointer into
// a Container. lastWriteSeqno is weakly monotonic except across an explicit
// Reset, which rollback uses to rebuild state non-monotonically (§4.5).
type Cursor struct {
	node           *Node
	lastWriteSeqno int64
}

// NewCursor returns a Cursor positioned at End() with lastWriteSeqno 0,
// matching the PDM constructor's initial state (§4.1).
func NewCursor() *Cursor {
	return &Cursor{}
}

// LastWriteSeqno returns the cursor's watermark: HPS or HCS depending on
// which cursor this is.
func (c *Cursor) LastWriteSeqno() int64 { return c.lastWriteSeqno }

// Node returns the node this cursor currently references, or nil (End()).
func (c *Cursor) Node() *Node { return c.node }

// AdvanceTo moves the cursor to n, setting lastWriteSeqno to n's BySeqno.
// The seqno update happens before the node is moved, matching the original
// implementation's update-then-move ordering (§4.4 update discipline): a
// caller that panics between the two calls never observes a half-moved
// cursor with a stale seqno, because the seqno is already correct.
func (c *Cursor) AdvanceTo(n *Node) {
	c.lastWriteSeqno = n.write.BySeqno
	c.node = n
}

// Next implements the single legal forward step (§4.2): "end -> begin" wraps
// so that a cursor reset to End() by an erase resumes scanning from the
// first surviving element.
func (c *Cursor) Next(container *Container) *Node {
	if c.node == nil {
		return container.Begin()
	}
	return c.node.Next()
}

// ResetToEnd repositions the cursor to End() without touching
// lastWriteSeqno. Used by the erase-cursor-reset rule (§4.2) and as the
// first half of a rollback reset.
func (c *Cursor) ResetToEnd() { c.node = nil }

// Reset forcibly sets both fields, bypassing the monotonicity requirement.
// The only legal caller is PostProcessRollback (§4.5).
func (c *Cursor) Reset(node *Node, lastWriteSeqno int64) {
	c.node = node
	c.lastWriteSeqno = lastWriteSeqno
}
