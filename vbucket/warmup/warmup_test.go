package warmup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/vbucket"
)

type fakeHandle struct {
	id vbucket.ID
}

func (f fakeHandle) ID() vbucket.ID            { return f.id }
func (f fakeHandle) State() string             { return "replica" }
func (f fakeHandle) PersistenceSeqno() int64   { return 0 }
func (f fakeHandle) SendSeqnoAck(seqno int64)  {}

type fakeSource struct {
	calls     int
	prepares  map[vbucket.ID][]*durability.TrackedWrite
	errs      map[vbucket.ID]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		prepares: map[vbucket.ID][]*durability.TrackedWrite{},
		errs:     map[vbucket.ID]error{},
	}
}

func (f *fakeSource) LoadOutstandingPrepares(vb vbucket.ID) ([]*durability.TrackedWrite, error) {
	f.calls++
	if err, ok := f.errs[vb]; ok {
		return nil, err
	}
	return f.prepares[vb], nil
}

func warmupWrite(seqno int64) *durability.TrackedWrite {
	return &durability.TrackedWrite{
		Key:     []byte("k"),
		BySeqno: seqno,
		Level:   durability.LevelMajority,
		Timeout: time.Second,
	}
}

func TestWarmer_Warm_RehydratesPDM(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.prepares[1] = []*durability.TrackedWrite{warmupWrite(1), warmupWrite(2)}

	w, err := New(src, 16)
	require.NoError(t, err)

	pdm, err := w.Warm(fakeHandle{id: 1})
	require.NoError(t, err)
	require.Equal(t, 2, pdm.GetNumTracked())
	require.Equal(t, PhaseLoading, w.GetProgress().Phase)
	require.Equal(t, 1, w.GetProgress().VBucketsLoaded)
}

func TestWarmer_Warm_RejectsDefaultTimeout(t *testing.T) {
	t.Parallel()

	bad := warmupWrite(1)
	bad.Timeout = durability.DefaultTimeout

	src := newFakeSource()
	src.prepares[1] = []*durability.TrackedWrite{bad}

	w, err := New(src, 16)
	require.NoError(t, err)

	_, err = w.Warm(fakeHandle{id: 1})
	require.ErrorIs(t, err, ErrDefaultTimeout)
	require.Equal(t, PhaseFailed, w.GetProgress().Phase)
}

func TestWarmer_Warm_PropagatesSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk read failed")
	src := newFakeSource()
	src.errs[1] = boom

	w, err := New(src, 16)
	require.NoError(t, err)

	_, err = w.Warm(fakeHandle{id: 1})
	require.ErrorIs(t, err, boom)
}

func TestWarmer_LoadPrepares_CachesAcrossCalls(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.prepares[1] = []*durability.TrackedWrite{warmupWrite(1)}

	w, err := New(src, 16)
	require.NoError(t, err)

	_, err = w.Warm(fakeHandle{id: 1})
	require.NoError(t, err)
	_, err = w.Warm(fakeHandle{id: 1})
	require.NoError(t, err)

	require.Equal(t, 1, src.calls, "second warmup of the same vbucket should hit the cache")
}

func TestWarmer_WarmAll_PopulatesRegistry(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.prepares[1] = []*durability.TrackedWrite{warmupWrite(1)}
	src.prepares[2] = []*durability.TrackedWrite{warmupWrite(1), warmupWrite(2)}

	w, err := New(src, 16)
	require.NoError(t, err)

	reg, err := w.WarmAll([]vbucket.Handle{fakeHandle{id: 1}, fakeHandle{id: 2}})
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	pdm1, ok := reg.Get(1)
	require.True(t, ok)
	require.Equal(t, 1, pdm1.GetNumTracked())

	pdm2, ok := reg.Get(2)
	require.True(t, ok)
	require.Equal(t, 2, pdm2.GetNumTracked())

	progress := w.GetProgress()
	require.Equal(t, PhaseComplete, progress.Phase)
	require.Equal(t, 2, progress.VBucketsTotal)
	require.Equal(t, 2, progress.VBucketsLoaded)
}

func TestWarmer_WarmAll_StopsAtFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk read failed")
	src := newFakeSource()
	src.prepares[1] = []*durability.TrackedWrite{warmupWrite(1)}
	src.errs[2] = boom

	w, err := New(src, 16)
	require.NoError(t, err)

	_, err = w.WarmAll([]vbucket.Handle{fakeHandle{id: 1}, fakeHandle{id: 2}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, PhaseFailed, w.GetProgress().Phase)
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "idle", PhaseIdle.String())
	require.Equal(t, "loading", PhaseLoading.String())
	require.Equal(t, "complete", PhaseComplete.String())
	require.Equal(t, "failed", PhaseFailed.String())
	require.Equal(t, "unknown", Phase(99).String())
}
