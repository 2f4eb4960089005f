package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zero/agent"
	"zero/engine"
	"zero/experiments/metrics"
	"zero/game"
)

// Contestant builds a fresh agent for every game so concurrent games never
// share search trees or random sources.
type Contestant struct {
	Name string
	New  agent.Factory
}

type GameResult struct {
	Index   int
	First   int     // 0 when the first contestant moved first
	Outcome float64 // from the first contestant's perspective
	metrics.GameMetric
	Moves []metrics.MoveMetric
}

type Result struct {
	Score  float64 // mean outcome for the first contestant, in [-1, 1]
	Wins   int
	Losses int
	Draws  int
	Games  []GameResult
}

// WinRate maps the score onto [0, 1], counting draws as half a win.
func (r Result) WinRate() float64 {
	return r.Score*0.5 + 0.5
}

type Arena struct {
	game    game.Game
	workers int
	seed    uint64
	log     zerolog.Logger
}

func New(g game.Game, workers int, seed uint64, logger zerolog.Logger) *Arena {
	if workers <= 0 {
		panic("Must have at least one worker")
	}
	return &Arena{game: g, workers: workers, seed: seed, log: logger.With().Str("component", "arena").Logger()}
}

// PlayMatch plays n games between x and y, alternating who moves first.
// Agents are seeded by game pair and seat, so swapping x and y replays the
// same games with the roles reversed.
func (a *Arena) PlayMatch(ctx context.Context, x, y Contestant, n int) (Result, error) {
	if n <= 0 {
		return Result{}, errors.New("match needs at least one game")
	}

	games := make([]GameResult, n)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			result, err := a.playGame(ctx, x, y, i)
			if err != nil {
				return fmt.Errorf("%s vs %s game %d: %w", x.Name, y.Name, i, err)
			}
			games[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{Games: games}
	total := 0.0
	for _, g := range games {
		total += g.Outcome
		switch {
		case g.Outcome > 0:
			result.Wins++
		case g.Outcome < 0:
			result.Losses++
		default:
			result.Draws++
		}
	}
	result.Score = total / float64(n)

	a.log.Info().
		Str("first", x.Name).
		Str("second", y.Name).
		Int("games", n).
		Float64("score", result.Score).
		Float64("win_rate", result.WinRate()).
		Msgf("%s vs %s", x.Name, y.Name)
	return result, nil
}

func (a *Arena) playGame(ctx context.Context, x, y Contestant, i int) (GameResult, error) {
	pair := uint64(i / 2)
	first, second := x, y
	seatOfX := 0
	if i%2 == 1 {
		first, second = y, x
		seatOfX = 1
	}
	seats := [game.NumPlayers]agent.Agent{
		first.New(a.seed + 2*pair),
		second.New(a.seed + 2*pair + 1),
	}

	final, gameMetric, moves, err := engine.LocalEngine(a.game.NewInitialState(), seats, nil).Run(ctx)
	if err != nil {
		return GameResult{}, err
	}
	gameMetric.StartingAgent = seatOfX
	return GameResult{
		Index:      i,
		First:      seatOfX,
		Outcome:    game.Outcome(final, seatOfX),
		GameMetric: gameMetric,
		Moves:      moves,
	}, nil
}

// Tournament plays every ordered pair, including each contestant against
// itself. results[i][j] is contestant i's match against contestant j.
func (a *Arena) Tournament(ctx context.Context, contestants []Contestant, n int) ([][]Result, error) {
	results := make([][]Result, len(contestants))
	for i, x := range contestants {
		results[i] = make([]Result, len(contestants))
		for j, y := range contestants {
			result, err := a.PlayMatch(ctx, x, y, n)
			if err != nil {
				return nil, err
			}
			results[i][j] = result
		}
	}
	return results, nil
}

// ScoreMatrix extracts the scores of a tournament.
func ScoreMatrix(results [][]Result) [][]float64 {
	scores := make([][]float64, len(results))
	for i, row := range results {
		scores[i] = make([]float64, len(row))
		for j, r := range row {
			scores[i][j] = r.Score
		}
	}
	return scores
}
