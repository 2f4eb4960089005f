package agent

import (
	"math/rand/v2"

	"zero/game"
)

type randomAgent struct {
	numActions int
	rng        *rand.Rand
}

func NewRandomAgent(numActions int, rng *rand.Rand) Agent {
	return randomAgent{numActions: numActions, rng: rng}
}

func (a randomAgent) Step(state game.State) (Decision, error) {
	legal := state.LegalActions()
	policy := make([]float64, a.numActions)
	for _, action := range legal {
		policy[action] = 1 / float64(len(legal))
	}
	return Decision{Action: legal[a.rng.IntN(len(legal))], Policy: policy}, nil
}
