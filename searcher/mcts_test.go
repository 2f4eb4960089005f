package searcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"zero/game"
	"zero/game/tictactoe"
	"zero/predictor"
)

func newTestMCTS(p predictor.Predictor, options ...Option) *MCTS {
	options = append([]Option{WithRand(newTestRand(3))}, options...)
	return NewMCTS(tictactoe.Size, NewNetEvaluator(p, tictactoe.Size), options...)
}

func TestNewMCTS(t *testing.T) {
	t.Run("panics without an evaluator", func(t *testing.T) {
		require.Panics(t, func() {
			NewMCTS(tictactoe.Size, nil)
		})
	})

	t.Run("ignores invalid options", func(t *testing.T) {
		m := newTestMCTS(predictor.NewUniform(tictactoe.Size), WithPlayouts(-1), WithCpuct(0))
		require.Equal(t, DefaultPlayouts, m.Playouts())
		require.Equal(t, DefaultCpuct, m.cpuct)
	})
}

func TestSearch(t *testing.T) {
	t.Run("visit counts sum to the playout budget", func(t *testing.T) {
		m := newTestMCTS(predictor.NewUniform(tictactoe.Size), WithMetrics())
		state := tictactoe.FromHistory(4, 0)

		for _, noise := range []bool{false, true} {
			result, err := m.Search(state, 50, noise, true)
			require.NoError(t, err)

			total := 0
			for _, v := range result.Visits {
				total += v
			}
			require.Equal(t, 50, total)
			require.Zero(t, result.Visits[0], "Occupied cell must not be visited")
			require.Zero(t, result.Visits[4], "Occupied cell must not be visited")
			require.InDelta(t, 1.0, floats.Sum(result.Policy), 1e-9)
			require.True(t, game.IsLegal(state, result.Action))
			require.Equal(t, 50, result.Metric.Playouts)
		}
	})

	t.Run("single legal action skips search", func(t *testing.T) {
		calls := 0
		evaluator := evaluatorFunc(func(game.State) ([]float64, float64, error) {
			calls++
			return nil, 0, errors.New("should not be called")
		})
		m := NewMCTS(tictactoe.Size, evaluator, WithRand(newTestRand(1)))
		state := tictactoe.FromHistory(0, 1, 2, 4, 3, 5, 7, 6)

		for _, playouts := range []int{1, 100} {
			result, err := m.Search(state, playouts, true, true)
			require.NoError(t, err)
			require.Equal(t, 8, result.Action)
			require.Equal(t, game.OneHot[float64](tictactoe.Size, 8), result.Policy)
			require.Nil(t, result.Visits)
		}
		require.Zero(t, calls)
	})

	t.Run("takes an immediate win", func(t *testing.T) {
		m := newTestMCTS(predictor.NewUniform(tictactoe.Size))
		state := tictactoe.FromHistory(0, 3, 1, 4)

		result, err := m.Search(state, 200, false, false)
		require.NoError(t, err)
		require.Equal(t, 2, result.Action)
	})

	t.Run("baseline rollouts take an immediate win", func(t *testing.T) {
		rng := newTestRand(5)
		m := NewMCTS(tictactoe.Size, NewRolloutEvaluator(tictactoe.Size, 1, rng), WithRand(rng))
		state := tictactoe.FromHistory(0, 3, 1, 4)

		result, err := m.Search(state, 300, false, false)
		require.NoError(t, err)
		require.Equal(t, 2, result.Action)
	})

	t.Run("rejects terminal states", func(t *testing.T) {
		m := newTestMCTS(predictor.NewUniform(tictactoe.Size))
		_, err := m.Search(tictactoe.FromHistory(0, 1, 4, 2, 8), 10, false, false)
		require.ErrorIs(t, err, ErrTerminal)
	})

	t.Run("malformed predictor output aborts the search", func(t *testing.T) {
		m := newTestMCTS(malformed{})
		_, err := m.Search(tictactoe.New().NewInitialState(), 10, false, false)
		require.ErrorIs(t, err, predictor.ErrMalformedOutput)
	})

	t.Run("fixed seeds reproduce the search", func(t *testing.T) {
		state := tictactoe.FromHistory(4)
		a, err := newTestMCTS(predictor.NewUniform(tictactoe.Size)).Search(state, 64, true, true)
		require.NoError(t, err)
		b, err := newTestMCTS(predictor.NewUniform(tictactoe.Size)).Search(state, 64, true, true)
		require.NoError(t, err)

		require.Equal(t, a.Action, b.Action)
		require.Equal(t, a.Visits, b.Visits)
	})
}

type malformed struct{}

func (malformed) Predict([]float32) ([]float64, float64, error) {
	return []float64{1, 2}, 0, nil
}

func TestRolloutEvaluator(t *testing.T) {
	e := NewRolloutEvaluator(tictactoe.Size, 8, newTestRand(2))
	policy, value, err := e.Evaluate(tictactoe.FromHistory(4))

	require.NoError(t, err)
	require.NoError(t, predictor.Validate(policy, value, tictactoe.Size))

	require.Panics(t, func() {
		NewRolloutEvaluator(tictactoe.Size, 0, newTestRand(2))
	})
}
