package arena

import (
	"math/rand/v2"

	"zero/agent"
	"zero/predictor"
	"zero/searcher"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NetContestant plays the predictor's preferred legal action without search.
// The predictor must be an immutable snapshot since games run concurrently.
func NetContestant(name string, p predictor.Predictor, numActions int) Contestant {
	return Contestant{Name: name, New: func(uint64) agent.Agent {
		return agent.NewNetAgent(p, numActions)
	}}
}

// ZeroContestant searches with the predictor, without noise, playing the most
// visited action unless stochastic is set.
func ZeroContestant(name string, p predictor.Predictor, numActions, playouts int, stochastic bool, options ...searcher.Option) Contestant {
	return Contestant{Name: name, New: func(seed uint64) agent.Agent {
		options := append([]searcher.Option{
			searcher.WithPlayouts(playouts),
			searcher.WithRand(seeded(seed)),
		}, options...)
		mcts := searcher.NewMCTS(numActions, searcher.NewNetEvaluator(p, numActions), options...)
		return agent.NewSearchAgent(mcts, false, stochastic)
	}}
}

// MCTSContestant is the predictor-free baseline scoring leaves by random rollouts.
func MCTSContestant(name string, numActions, playouts int, options ...searcher.Option) Contestant {
	return Contestant{Name: name, New: func(seed uint64) agent.Agent {
		return agent.NewBaselineAgent(numActions, playouts, seeded(seed), options...)
	}}
}

func RandomContestant(name string, numActions int) Contestant {
	return Contestant{Name: name, New: func(seed uint64) agent.Agent {
		return agent.NewRandomAgent(numActions, seeded(seed))
	}}
}
