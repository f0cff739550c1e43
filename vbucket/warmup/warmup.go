// Package warmup rehydrates a PassiveDurabilityMonitor from whatever
// Prepares survived on local storage across a restart (§10.3), the
// replica-side analogue of a snapshot restore: read what's on disk,
// verify it is fit to replay, and hand the replica a PDM that already
// knows about every in-flight SyncWrite.
package warmup

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/vbucket"
)

// ErrDefaultTimeout is returned when a Prepare recovered from local
// storage carries the protocol default timeout sentinel instead of an
// explicit value. That can only happen if storage itself is corrupt:
// every Prepare accepted by AddSyncWrite already carried an explicit
// timeout, so anything warmup loads should too.
var ErrDefaultTimeout = errors.New("warmup: recovered prepare carries default timeout sentinel")

// Phase is the coarse progress marker exposed to operators during warmup.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time snapshot of a Warmer's state across all the
// vbuckets it is warming.
type Progress struct {
	Phase          Phase
	VBucketsTotal  int
	VBucketsLoaded int
	Error          error
}

// PrepareSource reads back the seqno-ordered, still-outstanding Prepares
// for a vbucket from whatever local storage engine backs it. Implemented
// by the store, not by this package: warmup only orchestrates.
type PrepareSource interface {
	LoadOutstandingPrepares(vb vbucket.ID) ([]*durability.TrackedWrite, error)
}

// Warmer drives PDM rehydration for every vbucket this node is warming
// up. A small LRU remembers the most recently loaded vbuckets' prepares,
// so a vbucket that flaps between replica and dead during warmup retry
// doesn't re-read storage every time.
type Warmer struct {
	source PrepareSource
	cache  *lru.Cache[vbucket.ID, []*durability.TrackedWrite]

	mu       sync.RWMutex
	progress Progress
}

// New returns a Warmer reading Prepares from source, caching up to
// cacheSize vbuckets' worth of already-loaded prepares.
func New(source PrepareSource, cacheSize int) (*Warmer, error) {
	cache, err := lru.New[vbucket.ID, []*durability.TrackedWrite](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("warmup: building cache: %w", err)
	}
	return &Warmer{
		source: source,
		cache:  cache,
		progress: Progress{Phase: PhaseIdle},
	}, nil
}

// GetProgress returns the current progress snapshot.
func (w *Warmer) GetProgress() Progress {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.progress
}

func (w *Warmer) setPhase(phase Phase) {
	w.mu.Lock()
	w.progress.Phase = phase
	w.mu.Unlock()
}

func (w *Warmer) setError(err error) {
	w.mu.Lock()
	w.progress.Phase = PhaseFailed
	w.progress.Error = err
	w.mu.Unlock()
}

// loadPrepares returns the outstanding prepares for vb, from cache if
// present, validating that none carries the default timeout sentinel.
func (w *Warmer) loadPrepares(vb vbucket.Handle) ([]*durability.TrackedWrite, error) {
	prepares, ok := w.cache.Get(vb.ID())
	if !ok {
		loaded, err := w.source.LoadOutstandingPrepares(vb.ID())
		if err != nil {
			return nil, fmt.Errorf("warmup: loading prepares for vbucket %d: %w", vb.ID(), err)
		}
		prepares = loaded
		w.cache.Add(vb.ID(), prepares)
	}

	for _, p := range prepares {
		if p.Timeout == durability.DefaultTimeout {
			return nil, fmt.Errorf("%w: vbucket %d key %q", ErrDefaultTimeout, vb.ID(), p.Key)
		}
	}

	return prepares, nil
}

// Warm rehydrates a single vbucket's PDM via
// vbucket.NewWithOutstandingPrepares.
func (w *Warmer) Warm(vb vbucket.Handle) (*vbucket.PassiveDurabilityMonitor, error) {
	w.setPhase(PhaseLoading)

	prepares, err := w.loadPrepares(vb)
	if err != nil {
		w.setError(err)
		return nil, err
	}

	pdm, err := vbucket.NewWithOutstandingPrepares(vb, prepares)
	if err != nil {
		w.setError(err)
		return nil, err
	}

	w.mu.Lock()
	w.progress.VBucketsLoaded++
	w.mu.Unlock()

	log.Info().
		Uint16("vbucket", uint16(vb.ID())).
		Int("outstanding_prepares", len(prepares)).
		Msg("warmup: recovered passive durability monitor")

	return pdm, nil
}

// WarmAll rehydrates every vbucket in vbs into a fresh Registry, stopping
// at the first error.
func (w *Warmer) WarmAll(vbs []vbucket.Handle) (*vbucket.Registry, error) {
	w.mu.Lock()
	w.progress = Progress{Phase: PhaseLoading, VBucketsTotal: len(vbs)}
	w.mu.Unlock()

	reg := vbucket.NewRegistry()
	for _, vb := range vbs {
		prepares, err := w.loadPrepares(vb)
		if err != nil {
			w.setError(err)
			return nil, err
		}
		if _, err := reg.OpenWithOutstandingPrepares(vb, prepares); err != nil {
			w.setError(err)
			return nil, err
		}

		w.mu.Lock()
		w.progress.VBucketsLoaded++
		w.mu.Unlock()
	}

	w.setPhase(PhaseComplete)
	return reg, nil
}
