package vbucket

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/durability"
)

// quickScenario is a randomized sequence of Prepares (one per level drawn
// from the protocol's closed set) plus a per-step coin flip for whether to
// drive a completion once that step's snapshot has been notified. quick.Check
// generates many of these to probe §4's weak-monotonicity invariant beyond
// the hand-written example scenarios in pdm_test.go.
type quickScenario struct {
	Levels      []durability.Level
	CompleteNow []bool
}

func (quickScenario) Generate(rnd *rand.Rand, size int) reflect.Value {
	n := rnd.Intn(size+1) + 1

	levels := make([]durability.Level, n)
	completeNow := make([]bool, n)
	choices := []durability.Level{
		durability.LevelMajority,
		durability.LevelMajorityAndPersistOnMaster,
		durability.LevelPersistToMajority,
	}
	for i := 0; i < n; i++ {
		levels[i] = choices[rnd.Intn(len(choices))]
		completeNow[i] = rnd.Intn(2) == 0
	}
	return reflect.ValueOf(quickScenario{Levels: levels, CompleteNow: completeNow})
}

// hpsAndHCSNeverRegress drives a PDM through a randomized scenario, checking
// after every notification and completion that HPS and HCS never decrease
// and that HCS <= HPS holds throughout (§4's core ordering invariant).
// Returns false on the first violation, which quick.Check then shrinks.
func hpsAndHCSNeverRegress(s quickScenario) bool {
	if len(s.Levels) == 0 {
		return true
	}

	vb := newFakeVBucket(1)
	pdm := New(vb)
	for i, lvl := range s.Levels {
		if err := pdm.AddSyncWrite(prepare(int64(i+1), lvl)); err != nil {
			return false
		}
	}

	var prevHPS, prevHCS int64
	var completed int64
	total := int64(len(s.Levels))

	for i := range s.Levels {
		snapEnd := int64(i + 1)
		vb.SetPersistence(snapEnd)
		pdm.NotifySnapshotEndReceived(snapEnd)

		if hps, hcs := pdm.GetHighPreparedSeqno(), pdm.GetHighCompletedSeqno(); hps < prevHPS || hcs < prevHCS || hcs > hps {
			return false
		} else {
			prevHPS, prevHCS = hps, hcs
		}

		if s.CompleteNow[i] && completed < total {
			if err := pdm.CompleteSyncWrite([]byte("key"), durability.ResolutionCommit); err != nil {
				return false
			}
			completed++

			if hps, hcs := pdm.GetHighPreparedSeqno(), pdm.GetHighCompletedSeqno(); hps < prevHPS || hcs < prevHCS || hcs > hps {
				return false
			} else {
				prevHPS, prevHCS = hps, hcs
			}
		}
	}

	return true
}

func TestQuick_HPSAndHCSMonotonic(t *testing.T) {
	t.Parallel()

	err := quick.Check(hpsAndHCSNeverRegress, &quick.Config{MaxCount: 200})
	require.NoError(t, err)
}
