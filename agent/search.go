package agent

import (
	"math/rand/v2"

	"zero/game"
	"zero/searcher"
)

type searchAgent struct {
	mcts       *searcher.MCTS
	noise      bool
	stochastic bool
}

// NewSearchAgent returns an agent driven by tree search.
func NewSearchAgent(mcts *searcher.MCTS, noise, stochastic bool) Agent {
	return searchAgent{mcts: mcts, noise: noise, stochastic: stochastic}
}

// NewTrainingAgent returns a new agent for self-play during training.
func NewTrainingAgent(mcts *searcher.MCTS) Agent {
	return NewSearchAgent(mcts, true, true)
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
func NewEvaluationAgent(mcts *searcher.MCTS) Agent {
	return NewSearchAgent(mcts, false, false)
}

// NewBaselineAgent returns a deterministic search agent evaluating leaves
// with a single random rollout.
func NewBaselineAgent(numActions, playouts int, rng *rand.Rand, options ...searcher.Option) Agent {
	evaluator := searcher.NewRolloutEvaluator(numActions, 1, rng)
	options = append([]searcher.Option{searcher.WithPlayouts(playouts), searcher.WithRand(rng)}, options...)
	return NewEvaluationAgent(searcher.NewMCTS(numActions, evaluator, options...))
}

func (a searchAgent) Step(state game.State) (Decision, error) {
	result, err := a.mcts.Search(state, a.mcts.Playouts(), a.noise, a.stochastic)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Action: result.Action, Policy: result.Policy, Metric: result.Metric}, nil
}
