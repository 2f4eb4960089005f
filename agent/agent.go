package agent

import (
	"zero/experiments/metrics"
	"zero/game"
)

// Decision is an agent's move along with the distribution it was drawn from.
type Decision struct {
	Action int
	Policy []float64 // over the full action space
	Metric metrics.SearchMetric
}

type Agent interface {
	// Step picks an action for the player to move in a non-terminal state
	Step(state game.State) (Decision, error)
}

// Factory builds a fresh agent for one game. Seeds keep stochastic agents
// reproducible independently of scheduling.
type Factory func(seed uint64) Agent
