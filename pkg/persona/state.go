package persona

import (
	"math/rand"
	"time"

	"github.com/oceanbase/powerpersona-go/pkg/core"
)

// State is the respond routine state evaluated on every tick.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateReadOnly
	StateInitiatingTopic
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProcessing:
		return "PROCESSING"
	case StateReadOnly:
		return "READ_ONLY"
	case StateInitiatingTopic:
		return "INITIATING_TOPIC"
	}
	return "UNKNOWN"
}

// NextState picks the state of a tick. A non-positive threshold disables
// topic initiation.
func NextState(queueLen int, readOnly bool, idleFor, threshold time.Duration) State {
	if queueLen > 0 {
		if readOnly {
			return StateReadOnly
		}
		return StateProcessing
	}
	if threshold > 0 && idleFor > threshold {
		return StateInitiatingTopic
	}
	return StateIdle
}

// Substate is the processing mode chosen within StateProcessing.
type Substate int

const (
	// SubstateBatch drains the queue and replies once.
	SubstateBatch Substate = iota
	// SubstateIgnore drops one event.
	SubstateIgnore
	// SubstateOnlyRead drains the queue without replying.
	SubstateOnlyRead
)

func (s Substate) String() string {
	switch s {
	case SubstateBatch:
		return "BATCH"
	case SubstateIgnore:
		return "IGNORE"
	case SubstateOnlyRead:
		return "ONLY_READ"
	}
	return "UNKNOWN"
}

// ChooseSubstate draws each weight uniformly from its range, normalises them
// and picks a substate. All-zero weights pick SubstateBatch.
func ChooseSubstate(rng *rand.Rand, w core.SubstateWeights) Substate {
	weights := [3]float64{
		draw(rng, w.Batch),
		draw(rng, w.Ignore),
		draw(rng, w.OnlyRead),
	}
	var sum float64
	for _, x := range weights {
		sum += x
	}
	if sum <= 0 {
		return SubstateBatch
	}

	x := rng.Float64()
	var acc float64
	for i, wt := range weights {
		acc += wt / sum
		if x < acc {
			return Substate(i)
		}
	}
	// Rounding left x above the last bucket.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return Substate(i)
		}
	}
	return SubstateBatch
}

func draw(rng *rand.Rand, r core.WeightRange) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}
