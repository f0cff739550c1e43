package vbucket

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/maxpert/marmot-pdm/durability"
)

// Registry hosts one PassiveDurabilityMonitor per vbucket owned by this
// node, keyed by ID (§10.3). Lookups and inserts never block each other:
// a resharding stream opening vbucket 7 must not wait on an ack flush for
// vbucket 3.
type Registry struct {
	monitors *xsync.MapOf[ID, *PassiveDurabilityMonitor]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{monitors: xsync.NewMapOf[ID, *PassiveDurabilityMonitor]()}
}

// Open installs an empty PDM for vb, replacing any existing one for the
// same ID. Used when a vbucket transitions into the replica role.
func (r *Registry) Open(vb Handle) *PassiveDurabilityMonitor {
	pdm := New(vb)
	r.monitors.Store(vb.ID(), pdm)
	return pdm
}

// OpenWithOutstandingPrepares installs a warmed-up PDM for vb, replacing
// any existing one for the same ID.
func (r *Registry) OpenWithOutstandingPrepares(vb Handle, outstandingPrepares []*durability.TrackedWrite) (*PassiveDurabilityMonitor, error) {
	pdm, err := NewWithOutstandingPrepares(vb, outstandingPrepares)
	if err != nil {
		return nil, err
	}
	r.monitors.Store(vb.ID(), pdm)
	return pdm, nil
}

// Get returns the PDM for id, if one is open.
func (r *Registry) Get(id ID) (*PassiveDurabilityMonitor, bool) {
	return r.monitors.Load(id)
}

// Close removes the PDM for id, e.g. because the vbucket was reassigned
// away from this node.
func (r *Registry) Close(id ID) {
	r.monitors.Delete(id)
}

// Len returns the number of vbuckets currently hosted.
func (r *Registry) Len() int {
	return r.monitors.Size()
}

// Range calls fn for every hosted PDM, stopping early if fn returns
// false. Order is unspecified.
func (r *Registry) Range(fn func(id ID, pdm *PassiveDurabilityMonitor) bool) {
	r.monitors.Range(func(id ID, pdm *PassiveDurabilityMonitor) bool {
		return fn(id, pdm)
	})
}

// StatsAll emits every hosted vbucket's stats to sink.
func (r *Registry) StatsAll(sink StatsSink) {
	r.Range(func(_ ID, pdm *PassiveDurabilityMonitor) bool {
		pdm.Stats(sink)
		return true
	})
}
