package agent

import (
	"fmt"

	"zero/game"
	"zero/predictor"
)

type netAgent struct {
	predictor  predictor.Predictor
	numActions int
}

// NewNetAgent plays the legal action with the highest prior, without search.
func NewNetAgent(p predictor.Predictor, numActions int) Agent {
	return netAgent{predictor: p, numActions: numActions}
}

func (a netAgent) Step(state game.State) (Decision, error) {
	policy, value, err := a.predictor.Predict(state.Encode())
	if err != nil {
		return Decision{}, fmt.Errorf("failed to predict: %w", err)
	}
	if err := predictor.Validate(policy, value, a.numActions); err != nil {
		return Decision{}, err
	}

	masked := make([]float64, a.numActions)
	for _, action := range state.LegalActions() {
		masked[action] = policy[action]
	}
	if !game.Normalize(masked) {
		legal := state.LegalActions()
		for _, action := range legal {
			masked[action] = 1 / float64(len(legal))
		}
	}
	return Decision{Action: game.Argmax(masked), Policy: masked}, nil
}
