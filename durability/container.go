// Package durability implements the ordered-container engine that backs the
// Passive Durability Monitor: TrackedWrite, the closed Level/Resolution
// variants, and the Container/Cursor pair that together provide the
// iterator-stable sequence a PDM State needs.
package durability

// Node is a stable reference into a Container: an "iterator" in the sense
// the spec uses the term. A *Node's address never changes for the lifetime
// of the TrackedWrite it holds; Container never relocates nodes on insert,
// and erase of one node never invalidates any other live *Node. This is the
// Go analogue of std::list<TrackedWrite>::iterator, which is exactly what
// the original implementation relies on.
type Node struct {
	write *TrackedWrite
	prev  *Node
	next  *Node
	// container back-pointer, used only for a defensive ownership check in
	// Container.Erase; it is never dereferenced to walk the list.
	owner *Container
}

// Write returns the TrackedWrite this node holds. Nil if the node is the
// sentinel End value of some Container.
func (n *Node) Write() *TrackedWrite {
	if n == nil {
		return nil
	}
	return n.write
}

// Container is an ordered sequence of TrackedWrites, strictly increasing by
// BySeqno, realized as a doubly-linked list of *Node so that element
// addresses are stable across PushBack/PushFront/Erase of other elements.
type Container struct {
	head *Node
	tail *Node
	size int
}

// NewContainer returns an empty Container.
func NewContainer() *Container {
	return &Container{}
}

// End is the sentinel "one past the last element" position. A Cursor whose
// node equals End (nil) references no live element.
func (c *Container) End() *Node { return nil }

// Begin returns the first element, or End() if the Container is empty.
func (c *Container) Begin() *Node { return c.head }

// Back returns the last element, or End() if the Container is empty.
func (c *Container) Back() *Node { return c.tail }

// Len returns the number of tracked elements.
func (c *Container) Len() int { return c.size }

// Empty reports whether the Container holds no elements.
func (c *Container) Empty() bool { return c.size == 0 }

// Next returns the node immediately after n, or End() if n is the last
// element. n must be a live node of this Container (not End()); callers
// that need the wrap-around "end -> begin" behavior use Cursor.Next instead.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// PushBack appends write as the new tail. The caller is responsible for the
// strict-monotonicity precondition (BySeqno must exceed the current tail's).
func (c *Container) PushBack(write *TrackedWrite) *Node {
	n := &Node{write: write, owner: c}
	if c.tail == nil {
		c.head = n
		c.tail = n
	} else {
		n.prev = c.tail
		c.tail.next = n
		c.tail = n
	}
	c.size++
	return n
}

// PushFront prepends write as the new head. Used only during rollback
// replay (§4.5), where prepares are restored in descending seqno order so
// that the overall ascending-seqno invariant is preserved.
func (c *Container) PushFront(write *TrackedWrite) *Node {
	n := &Node{write: write, owner: c}
	if c.head == nil {
		c.head = n
		c.tail = n
	} else {
		n.next = c.head
		c.head.prev = n
		c.head = n
	}
	c.size++
	return n
}

// Erase removes n from the Container. It is the caller's responsibility
// (Cursor discipline, §4.2) to reposition any cursor referencing n to End()
// before calling Erase; Erase itself never touches a Cursor.
func (c *Container) Erase(n *Node) {
	if n == nil || n.owner != c {
		return
	}

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	n.owner = nil
	c.size--
}

// EraseFrom removes n and every node after it, in order, through the tail.
// Used by rollback to truncate everything past the new high seqno.
func (c *Container) EraseFrom(n *Node) {
	for n != nil {
		next := n.next
		c.Erase(n)
		n = next
	}
}

// FirstGreaterThan returns the first live node whose BySeqno exceeds seqno,
// or End() if none. Container is ordered, so this is a linear scan from the
// front; rollback's truncation point search uses it.
func (c *Container) FirstGreaterThan(seqno int64) *Node {
	for n := c.head; n != nil; n = n.next {
		if n.write.BySeqno > seqno {
			return n
		}
	}
	return nil
}
