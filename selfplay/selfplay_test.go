package selfplay

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zero/buffer"
	"zero/game"
	"zero/game/tictactoe"
	"zero/predictor"
)

// chain is a game with a single legal action per ply that the first player
// wins after three plies.
type chain struct{}

func (chain) Name() string                { return "chain" }
func (chain) NumActions() int             { return 2 }
func (chain) EncodingSize() int           { return 4 }
func (chain) NewInitialState() game.State { return chainState{} }

type chainState struct {
	history []int
}

func (s chainState) Player() int { return len(s.history) % 2 }

func (s chainState) LegalActions() []int {
	if s.IsTerminal() {
		return nil
	}
	return []int{0}
}

func (s chainState) Play(action int) game.State {
	return chainState{history: append(append([]int(nil), s.history...), action)}
}

func (s chainState) IsTerminal() bool { return len(s.history) == 3 }

func (s chainState) Returns() [game.NumPlayers]float64 {
	if s.IsTerminal() {
		return [game.NumPlayers]float64{1, -1}
	}
	return [game.NumPlayers]float64{}
}

func (s chainState) History() []int { return append([]int(nil), s.history...) }

func (s chainState) Encode() []float32 {
	out := make([]float32, 4)
	out[len(s.history)] = 1
	return out
}

func (s chainState) String() string { return "chain" }

type snapshotter struct {
	predictor.Predictor
}

func (s snapshotter) Snapshot() predictor.Predictor { return s.Predictor }

// flaky fails its first calls, then behaves like a uniform predictor.
type flaky struct {
	failures atomic.Int32
	panics   bool
	inner    predictor.Predictor
}

func (f *flaky) Predict(encoding []float32) ([]float64, float64, error) {
	if f.failures.Add(-1) >= 0 {
		if f.panics {
			panic("out of memory")
		}
		return nil, 0, errors.New("worker crashed")
	}
	return f.inner.Predict(encoding)
}

func (f *flaky) Snapshot() predictor.Predictor { return f }

func testConfig() Config {
	return Config{Workers: 2, Playouts: 16, Cpuct: 2.5, DirichletAlpha: 1, DirichletRatio: 0.25, Temperature: 1, Seed: 42}
}

func TestGenerate(t *testing.T) {
	t.Run("labels a forced win from each mover's perspective", func(t *testing.T) {
		g := NewGenerator(chain{}, testConfig(), zerolog.Nop())
		records, err := g.Generate(context.Background(), snapshotter{predictor.NewUniform(2)}, 1, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)

		examples := records[0].Examples
		require.Len(t, examples, 3)
		for i, ex := range examples {
			require.Equal(t, i, ex.Ply)
			require.Equal(t, i%2, ex.Player)
			require.Equal(t, []float32{1, 0}, ex.Policy)
		}
		require.Equal(t, float32(1), examples[0].Value, "Winner's plies are labelled +1")
		require.Equal(t, float32(-1), examples[1].Value, "Loser's plies are labelled -1")
		require.Equal(t, float32(1), examples[2].Value)
	})

	t.Run("produces valid policy targets", func(t *testing.T) {
		g := NewGenerator(tictactoe.New(), testConfig(), zerolog.Nop())
		records, err := g.Generate(context.Background(), snapshotter{predictor.NewUniform(tictactoe.Size)}, 4, 3)
		require.NoError(t, err)
		require.Len(t, records, 4)

		for _, r := range records {
			require.NotEmpty(t, r.ID)
			require.Equal(t, 3, r.Generation)
			for i, ex := range r.Examples {
				sum := float32(0)
				for cell, p := range ex.Policy {
					sum += p
					if ex.Encoding[cell] == 1 || ex.Encoding[tictactoe.Size+cell] == 1 {
						require.Zero(t, p, "Occupied cell %d has policy mass", cell)
					}
				}
				require.InDelta(t, 1.0, sum, 1e-5)
				require.Equal(t, game.KeyOf(ex.Encoding), ex.Key)
				if i > 0 {
					require.Equal(t, -r.Examples[i-1].Value, ex.Value, "Labels alternate with the mover")
				}
			}
		}

		b := buffer.New(10)
		require.NoError(t, b.AddGeneration(records))
	})

	t.Run("fixed seed reproduces the games", func(t *testing.T) {
		play := func() [][]buffer.Example {
			g := NewGenerator(tictactoe.New(), testConfig(), zerolog.Nop())
			records, err := g.Generate(context.Background(), snapshotter{predictor.NewUniform(tictactoe.Size)}, 3, 1)
			require.NoError(t, err)
			out := make([][]buffer.Example, len(records))
			for i, r := range records {
				out[i] = r.Examples
			}
			return out
		}
		require.Equal(t, play(), play())
	})

	t.Run("retries a failed game once", func(t *testing.T) {
		f := &flaky{inner: predictor.NewUniform(tictactoe.Size)}
		f.failures.Store(1)
		cfg := testConfig()
		cfg.Workers = 1
		g := NewGenerator(tictactoe.New(), cfg, zerolog.Nop())

		records, err := g.Generate(context.Background(), f, 1, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})

	t.Run("recovers from a panicking worker", func(t *testing.T) {
		f := &flaky{inner: predictor.NewUniform(tictactoe.Size), panics: true}
		f.failures.Store(1)
		cfg := testConfig()
		cfg.Workers = 1
		g := NewGenerator(tictactoe.New(), cfg, zerolog.Nop())

		_, err := g.Generate(context.Background(), f, 1, 0)
		require.NoError(t, err)
	})

	t.Run("second failure is fatal to the generation", func(t *testing.T) {
		f := &flaky{inner: predictor.NewUniform(tictactoe.Size)}
		f.failures.Store(2)
		cfg := testConfig()
		cfg.Workers = 1
		g := NewGenerator(tictactoe.New(), cfg, zerolog.Nop())

		records, err := g.Generate(context.Background(), f, 1, 0)
		require.Error(t, err)
		require.Nil(t, records)
	})

	t.Run("malformed predictions never reach a record", func(t *testing.T) {
		g := NewGenerator(tictactoe.New(), testConfig(), zerolog.Nop())
		_, err := g.Generate(context.Background(), snapshotter{badValue{}}, 2, 0)
		require.ErrorIs(t, err, predictor.ErrMalformedOutput)
	})
}

type badValue struct{}

func (badValue) Predict([]float32) ([]float64, float64, error) {
	policy := make([]float64, tictactoe.Size)
	policy[0] = 1
	return policy, 3, nil
}

func TestPlayGame(t *testing.T) {
	g := NewGenerator(tictactoe.New(), testConfig(), zerolog.Nop())
	rng := rand.New(rand.NewPCG(1, 1))
	record, err := g.PlayGame(context.Background(), predictor.NewUniform(tictactoe.Size), rng, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(record.Examples), 5, "Tic-tac-toe needs at least five plies")
}
