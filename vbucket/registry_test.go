package vbucket

import (
	"testing"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OpenAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	vb := newFakeVBucket(5)
	pdm := r.Open(vb)

	got, ok := r.Get(5)
	require.True(t, ok)
	require.Same(t, pdm, got)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_Get_MissingIsFalse(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, ok := r.Get(42)
	require.False(t, ok)
}

func TestRegistry_Open_ReplacesExisting(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	vb := newFakeVBucket(1)
	first := r.Open(vb)
	second := r.Open(vb)

	got, ok := r.Get(1)
	require.True(t, ok)
	require.Same(t, second, got)
	require.NotSame(t, first, got)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_OpenWithOutstandingPrepares_RejectsDefaultTimeout(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	w := prepare(1, durability.LevelMajority)
	w.Timeout = durability.DefaultTimeout

	_, err := r.OpenWithOutstandingPrepares(newFakeVBucket(1), []*durability.TrackedWrite{w})
	require.Error(t, err)
	require.Equal(t, 0, r.Len(), "a rejected warmup must not install a PDM")
}

func TestRegistry_Close_RemovesEntry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Open(newFakeVBucket(1))
	require.Equal(t, 1, r.Len())

	r.Close(1)
	require.Equal(t, 0, r.Len())
	_, ok := r.Get(1)
	require.False(t, ok)
}

func TestRegistry_Range_VisitsAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Open(newFakeVBucket(1))
	r.Open(newFakeVBucket(2))
	r.Open(newFakeVBucket(3))

	seen := map[ID]bool{}
	r.Range(func(id ID, pdm *PassiveDurabilityMonitor) bool {
		seen[id] = true
		return true
	})

	require.Len(t, seen, 3)
}

func TestRegistry_Range_StopsEarly(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Open(newFakeVBucket(1))
	r.Open(newFakeVBucket(2))
	r.Open(newFakeVBucket(3))

	count := 0
	r.Range(func(id ID, pdm *PassiveDurabilityMonitor) bool {
		count++
		return false
	})

	require.Equal(t, 1, count)
}

func TestRegistry_StatsAll_CoversEveryHostedVBucket(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	pdmA := r.Open(newFakeVBucket(1))
	pdmB := r.Open(newFakeVBucket(2))
	require.NoError(t, pdmA.AddSyncWrite(prepare(1, durability.LevelMajority)))
	require.NoError(t, pdmB.AddSyncWrite(prepare(1, durability.LevelMajority)))
	require.NoError(t, pdmB.AddSyncWrite(prepare(2, durability.LevelMajority)))

	sink := &multiCaptureSink{}
	r.StatsAll(sink)

	require.Len(t, sink.all, 2)
	tracked := map[ID]int{}
	for _, st := range sink.all {
		tracked[st.VBucketID] = st.NumTracked
	}
	require.Equal(t, 1, tracked[1])
	require.Equal(t, 2, tracked[2])
}

type multiCaptureSink struct {
	all []Stats
}

func (m *multiCaptureSink) AddVBucketStats(st Stats) {
	m.all = append(m.all, st)
}
