package selfplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zero/agent"
	"zero/buffer"
	"zero/engine"
	"zero/game"
	"zero/predictor"
	"zero/searcher"
)

type Config struct {
	Workers        int
	Playouts       int
	Cpuct          float64
	DirichletAlpha float64
	DirichletRatio float64
	Temperature    float64
	Seed           uint64
}

// Generator plays self-play games on a fixed pool of workers.
type Generator struct {
	game game.Game
	cfg  Config
	log  zerolog.Logger
}

func NewGenerator(g game.Game, cfg Config, logger zerolog.Logger) *Generator {
	if cfg.Workers <= 0 {
		panic("Must have at least one worker")
	}
	if cfg.Playouts <= 0 {
		panic("Must specify search playouts")
	}
	return &Generator{game: g, cfg: cfg, log: logger.With().Str("component", "selfplay").Logger()}
}

// Generate plays n games. Every worker gets its own snapshot of source taken
// before any game starts. Records are returned in dispatch order.
func (g *Generator) Generate(ctx context.Context, source predictor.Snapshotter, n, generation int) ([]buffer.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	workers := min(g.cfg.Workers, n)
	snapshots := make([]predictor.Predictor, workers)
	for i := range snapshots {
		snapshots[i] = source.Snapshot()
	}

	records := make([]buffer.Record, n)
	tasks := make(chan int)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(tasks)
		for i := 0; i < n; i++ {
			select {
			case tasks <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		snapshot := snapshots[w]
		eg.Go(func() error {
			for i := range tasks {
				record, err := g.playWithRetry(ctx, snapshot, i, generation)
				if err != nil {
					return err
				}
				records[i] = record
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (g *Generator) playWithRetry(ctx context.Context, p predictor.Predictor, index, generation int) (buffer.Record, error) {
	record, err := g.PlayGame(ctx, p, g.rng(index, generation, 0), generation)
	if err == nil {
		return record, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return buffer.Record{}, err
	}

	g.log.Warn().Err(err).Int("game", index).Msg("self-play game failed, retrying once")
	record, err = g.PlayGame(ctx, p, g.rng(index, generation, 1), generation)
	if err != nil {
		return buffer.Record{}, fmt.Errorf("game %d failed twice: %w", index, err)
	}
	return record, nil
}

func (g *Generator) rng(index, generation, attempt int) *rand.Rand {
	return rand.New(rand.NewPCG(g.cfg.Seed+uint64(generation), uint64(index)<<1|uint64(attempt)))
}

// PlayGame plays one game against itself with exploration noise and
// stochastic action selection, then labels every ply with the outcome for
// the player who was to move.
func (g *Generator) PlayGame(ctx context.Context, p predictor.Predictor, rng *rand.Rand, generation int) (record buffer.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("self-play game panicked: %v", r)
		}
	}()

	numActions := g.game.NumActions()
	mcts := searcher.NewMCTS(numActions, searcher.NewNetEvaluator(p, numActions),
		searcher.WithPlayouts(g.cfg.Playouts),
		searcher.WithCpuct(g.cfg.Cpuct),
		searcher.WithDirichlet(g.cfg.DirichletAlpha, g.cfg.DirichletRatio),
		searcher.WithTemperature(g.cfg.Temperature),
		searcher.WithRand(rng),
	)
	self := agent.NewTrainingAgent(mcts)

	var examples []buffer.Example
	observe := func(turn engine.Turn) {
		encoding := turn.State.Encode()
		examples = append(examples, buffer.Example{
			Key:        game.KeyOf(encoding),
			Encoding:   encoding,
			Policy:     game.Convert[float32](turn.Decision.Policy),
			Player:     turn.State.Player(),
			Ply:        turn.Ply,
			Generation: generation,
		})
	}

	seats := [game.NumPlayers]agent.Agent{self, self}
	final, _, _, err := engine.LocalEngine(g.game.NewInitialState(), seats, observe).Run(ctx)
	if err != nil {
		return buffer.Record{}, err
	}

	returns := final.Returns()
	for i := range examples {
		examples[i].Value = float32(returns[examples[i].Player])
	}
	return buffer.Record{ID: uuid.NewString(), Generation: generation, Examples: examples}, nil
}
