package engine

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"zero/agent"
	"zero/game"
	"zero/game/tictactoe"
	"zero/predictor"
	"zero/searcher"
)

type fixedAgent struct {
	action int
}

func (a fixedAgent) Step(game.State) (agent.Decision, error) {
	return agent.Decision{Action: a.action}, nil
}

func evaluationAgent(seed uint64) agent.Agent {
	rng := rand.New(rand.NewPCG(seed, seed))
	model := predictor.NewModel(predictor.Config{Inputs: 18, Hidden: 16, Actions: tictactoe.Size, LearningRate: 1e-3, Seed: 11})
	mcts := searcher.NewMCTS(tictactoe.Size, searcher.NewNetEvaluator(model.Snapshot(), tictactoe.Size),
		searcher.WithPlayouts(32), searcher.WithRand(rng))
	return agent.NewEvaluationAgent(mcts)
}

func TestLocalEngineRun(t *testing.T) {
	t.Run("deterministic agents replay the same game", func(t *testing.T) {
		play := func() []int {
			seats := [game.NumPlayers]agent.Agent{evaluationAgent(1), evaluationAgent(2)}
			final, gameMetric, moves, err := LocalEngine(tictactoe.New().NewInitialState(), seats, nil).Run(context.Background())
			require.NoError(t, err)
			require.True(t, final.IsTerminal())
			require.Equal(t, len(final.History()), gameMetric.TotalMoves)
			require.Len(t, moves, gameMetric.TotalMoves)
			return final.History()
		}

		first := play()
		for i := 0; i < 3; i++ {
			require.Equal(t, first, play())
		}
	})

	t.Run("observer sees every pre-move state", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		seats := [game.NumPlayers]agent.Agent{
			agent.NewRandomAgent(tictactoe.Size, rng),
			agent.NewRandomAgent(tictactoe.Size, rng),
		}
		var turns []Turn
		final, _, _, err := LocalEngine(tictactoe.New().NewInitialState(), seats, func(turn Turn) {
			turns = append(turns, turn)
		}).Run(context.Background())
		require.NoError(t, err)

		history := final.History()
		require.Len(t, turns, len(history))
		for i, turn := range turns {
			require.Equal(t, i, turn.Ply)
			require.Equal(t, i%2, turn.State.Player())
			require.Equal(t, history[i], turn.Decision.Action)
		}
	})

	t.Run("illegal action ends the game with an error", func(t *testing.T) {
		seats := [game.NumPlayers]agent.Agent{fixedAgent{4}, fixedAgent{4}}
		_, _, _, err := LocalEngine(tictactoe.New().NewInitialState(), seats, nil).Run(context.Background())
		require.ErrorIs(t, err, ErrIllegalAction)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		seats := [game.NumPlayers]agent.Agent{fixedAgent{0}, fixedAgent{1}}
		_, _, _, err := LocalEngine(tictactoe.New().NewInitialState(), seats, nil).Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("panics on an empty seat", func(t *testing.T) {
		require.Panics(t, func() {
			LocalEngine(tictactoe.New().NewInitialState(), [game.NumPlayers]agent.Agent{fixedAgent{0}, nil}, nil)
		})
	})
}
