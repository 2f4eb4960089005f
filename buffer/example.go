package buffer

import (
	"fmt"

	"github.com/chewxy/math32"

	"zero/game"
)

const policyTolerance = 1e-3

// Example is one labelled position. Value is the final outcome from the
// perspective of the player who was to move. Policy may be empty, in which
// case the example only trains the value head.
type Example struct {
	Key        game.Key
	Encoding   []float32
	Policy     []float32
	Value      float32
	Player     int
	Ply        int
	Generation int
}

// Record holds the examples of one self-play game in ply order.
type Record struct {
	ID         string
	Generation int
	Examples   []Example
}

func validateExample(ex Example) error {
	if len(ex.Encoding) == 0 {
		return fmt.Errorf("ply %d: empty encoding", ex.Ply)
	}
	if math32.IsNaN(ex.Value) || math32.IsInf(ex.Value, 0) || ex.Value < -1 || ex.Value > 1 {
		return fmt.Errorf("ply %d: value %v out of range", ex.Ply, ex.Value)
	}
	var sum float32
	for i, p := range ex.Policy {
		if math32.IsNaN(p) || math32.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("ply %d: policy[%d] = %v", ex.Ply, i, p)
		}
		sum += p
	}
	if len(ex.Policy) > 0 && math32.Abs(sum-1) > policyTolerance {
		return fmt.Errorf("ply %d: policy sums to %v", ex.Ply, sum)
	}
	return nil
}
