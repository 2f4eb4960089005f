package searcher

import (
	"fmt"
	"math/rand/v2"

	"zero/game"
	"zero/predictor"
)

// Evaluator scores a non-terminal leaf with a prior over the full action
// space and a value for the player to move.
type Evaluator interface {
	Evaluate(state game.State) (policy []float64, value float64, err error)
}

type netEvaluator struct {
	predictor  predictor.Predictor
	numActions int
}

// NewNetEvaluator queries a predictor with the canonical encoding of the leaf.
func NewNetEvaluator(p predictor.Predictor, numActions int) Evaluator {
	return &netEvaluator{predictor: p, numActions: numActions}
}

func (e *netEvaluator) Evaluate(state game.State) ([]float64, float64, error) {
	policy, value, err := e.predictor.Predict(state.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to predict: %w", err)
	}
	if err := predictor.Validate(policy, value, e.numActions); err != nil {
		return nil, 0, err
	}
	return policy, value, nil
}

type rolloutEvaluator struct {
	numActions int
	rollouts   int
	rng        *rand.Rand
}

// NewRolloutEvaluator returns a flat prior and the mean outcome of random
// playouts. It backs the fixed-budget baseline agents.
func NewRolloutEvaluator(numActions, rollouts int, rng *rand.Rand) Evaluator {
	if rollouts <= 0 {
		panic("rollout evaluator needs at least one rollout")
	}
	return &rolloutEvaluator{numActions: numActions, rollouts: rollouts, rng: rng}
}

func (e *rolloutEvaluator) Evaluate(state game.State) ([]float64, float64, error) {
	policy := make([]float64, e.numActions)
	for i := range policy {
		policy[i] = 1 / float64(e.numActions)
	}

	player := state.Player()
	total := 0.0
	for i := 0; i < e.rollouts; i++ {
		total += rollout(state, player, e.rng)
	}
	return policy, total / float64(e.rollouts), nil
}

func rollout(state game.State, player int, rng *rand.Rand) float64 {
	for !state.IsTerminal() {
		actions := state.LegalActions()
		state = state.Play(actions[rng.IntN(len(actions))]) // Random rollout policy
	}
	return game.Outcome(state, player)
}
