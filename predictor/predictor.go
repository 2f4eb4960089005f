package predictor

import (
	"errors"
	"fmt"
	"math"
)

var ErrMalformedOutput = errors.New("malformed predictor output")

// Predictor maps a canonical encoding to a distribution over the full action
// space and a value in [-1, 1] from the mover's perspective.
type Predictor interface {
	Predict(encoding []float32) (policy []float64, value float64, err error)
}

// Snapshotter hands out immutable predictors that are safe to use from
// another goroutine while the source keeps training.
type Snapshotter interface {
	Snapshot() Predictor
}

// Validate rejects outputs that would corrupt search statistics.
func Validate(policy []float64, value float64, numActions int) error {
	if len(policy) != numActions {
		return fmt.Errorf("%w: policy has %d entries, want %d", ErrMalformedOutput, len(policy), numActions)
	}
	for i, p := range policy {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: policy[%d] = %v", ErrMalformedOutput, i, p)
		}
	}
	if math.IsNaN(value) || value < -1 || value > 1 {
		return fmt.Errorf("%w: value = %v", ErrMalformedOutput, value)
	}
	return nil
}

type uniform struct {
	numActions int
}

// NewUniform returns a predictor with a flat prior and a neutral value.
func NewUniform(numActions int) Predictor {
	if numActions <= 0 {
		panic("uniform predictor needs at least one action")
	}
	return uniform{numActions: numActions}
}

func (u uniform) Predict([]float32) ([]float64, float64, error) {
	policy := make([]float64, u.numActions)
	for i := range policy {
		policy[i] = 1 / float64(u.numActions)
	}
	return policy, 0, nil
}

func (u uniform) Snapshot() Predictor {
	return u
}
