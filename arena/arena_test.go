package arena

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zero/agent"
	"zero/game/tictactoe"
	"zero/predictor"
)

func randomContestant(name string) Contestant {
	return Contestant{Name: name, New: func(seed uint64) agent.Agent {
		return agent.NewRandomAgent(tictactoe.Size, rand.New(rand.NewPCG(seed, 7)))
	}}
}

// Plays the lowest legal cell, so the first mover always completes the 2-4-6 diagonal.
func greedyContestant(name string) Contestant {
	snapshot := predictor.NewUniform(tictactoe.Size)
	return Contestant{Name: name, New: func(uint64) agent.Agent {
		return agent.NewNetAgent(snapshot, tictactoe.Size)
	}}
}

func newTestArena(workers int) *Arena {
	return New(tictactoe.New(), workers, 42, zerolog.Nop())
}

func TestPlayMatchSeatsAlternate(t *testing.T) {
	result, err := newTestArena(2).PlayMatch(context.Background(), greedyContestant("a"), greedyContestant("b"), 4)
	require.NoError(t, err)

	require.Equal(t, 0.0, result.Score)
	require.Equal(t, 2, result.Wins)
	require.Equal(t, 2, result.Losses)
	require.Equal(t, 0, result.Draws)
	require.Len(t, result.Games, 4)
	for i, g := range result.Games {
		require.Equal(t, i, g.Index)
		require.Equal(t, i%2, g.First)
		require.Equal(t, 7, g.TotalMoves)
		if i%2 == 0 {
			require.Equal(t, 1.0, g.Outcome)
		} else {
			require.Equal(t, -1.0, g.Outcome)
		}
	}
	require.Equal(t, 0.5, result.WinRate())
}

func TestPlayMatchIsSymmetric(t *testing.T) {
	a, b := randomContestant("a"), randomContestant("b")
	arena := newTestArena(4)

	for _, n := range []int{2, 10, 30} {
		ab, err := arena.PlayMatch(context.Background(), a, b, n)
		require.NoError(t, err)
		ba, err := arena.PlayMatch(context.Background(), b, a, n)
		require.NoError(t, err)

		require.Equal(t, ab.Score, -ba.Score)
		require.Equal(t, ab.Wins, ba.Losses)
		require.Equal(t, ab.Draws, ba.Draws)
	}
}

func TestPlayMatchIsIndependentOfWorkers(t *testing.T) {
	a, b := randomContestant("a"), randomContestant("b")
	serial, err := newTestArena(1).PlayMatch(context.Background(), a, b, 12)
	require.NoError(t, err)
	parallel, err := newTestArena(6).PlayMatch(context.Background(), a, b, 12)
	require.NoError(t, err)

	require.Equal(t, serial.Score, parallel.Score)
	for i := range serial.Games {
		require.Equal(t, serial.Games[i].Outcome, parallel.Games[i].Outcome)
		require.Equal(t, serial.Games[i].TotalMoves, parallel.Games[i].TotalMoves)
	}
}

func TestPlayMatchErrors(t *testing.T) {
	arena := newTestArena(2)
	a := randomContestant("a")

	t.Run("no games", func(t *testing.T) {
		_, err := arena.PlayMatch(context.Background(), a, a, 0)
		require.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := arena.PlayMatch(ctx, a, a, 4)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestTournament(t *testing.T) {
	contestants := []Contestant{greedyContestant("greedy"), randomContestant("random"), randomContestant("other")}
	results, err := newTestArena(3).Tournament(context.Background(), contestants, 6)
	require.NoError(t, err)

	scores := ScoreMatrix(results)
	require.Len(t, scores, len(contestants))
	for i := range contestants {
		require.Len(t, scores[i], len(contestants))
		for j := range contestants {
			require.GreaterOrEqual(t, scores[i][j], -1.0)
			require.LessOrEqual(t, scores[i][j], 1.0)
			require.Equal(t, scores[i][j], -scores[j][i])
			require.Len(t, results[i][j].Games, 6)
		}
	}
	require.Equal(t, 0.0, scores[0][0])
}
