package experiments

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"zero/arena"
	"zero/experiments/metrics"
	"zero/predictor"
	"zero/searcher"
	"zero/trainer"
)

const (
	KindNet    = "net"
	KindZero   = "zero"
	KindMCTS   = "mcts"
	KindRandom = "random"
)

// Setup describes a round-robin tournament between agent variants.
type Setup struct {
	Name       string                `yaml:"name"`
	Game       string                `yaml:"game"`
	Checkpoint string                `yaml:"checkpoint"` // required by net and zero agents
	Games      int                   `yaml:"games"`      // per ordered pair
	Workers    int                   `yaml:"workers"`
	Seed       uint64                `yaml:"seed"`
	Cpuct      float64               `yaml:"c_puct"`
	OutputDir  string                `yaml:"output_dir"`
	Agents     []metrics.AgentConfig `yaml:"agents"`
}

// LoadSetup reads a setup over the defaults. It is validated by Run.
func LoadSetup(path string) (Setup, error) {
	setup := Setup{
		Name:      "tournament",
		Game:      "connect_four",
		Games:     100,
		Workers:   8,
		Seed:      1,
		Cpuct:     searcher.DefaultCpuct,
		OutputDir: "experiments",
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return setup, fmt.Errorf("failed to read setup: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&setup); err != nil {
		return setup, fmt.Errorf("failed to parse setup %s: %w", path, err)
	}
	return setup, nil
}

func (s Setup) Validate() error {
	if _, err := trainer.NewGame(s.Game); err != nil {
		return err
	}
	if s.Games <= 0 || s.Workers <= 0 {
		return fmt.Errorf("games and workers must be positive, got %d and %d", s.Games, s.Workers)
	}
	if len(s.Agents) < 2 {
		return fmt.Errorf("need at least two agents, got %d", len(s.Agents))
	}
	ids := map[int]bool{}
	for _, a := range s.Agents {
		if ids[a.ID] {
			return fmt.Errorf("duplicate agent id %d", a.ID)
		}
		ids[a.ID] = true
		switch a.Kind {
		case KindNet, KindRandom:
		case KindZero, KindMCTS:
			if a.Playouts <= 0 {
				return fmt.Errorf("agent %d: %s needs a positive playout budget", a.ID, a.Kind)
			}
		default:
			return fmt.Errorf("agent %d: unknown kind %q", a.ID, a.Kind)
		}
		if (a.Kind == KindNet || a.Kind == KindZero) && s.Checkpoint == "" {
			return fmt.Errorf("agent %d: %s needs a checkpoint", a.ID, a.Kind)
		}
	}
	return nil
}

// Run plays the tournament, stores its records under a timestamped directory
// and returns the score matrix.
func Run(ctx context.Context, setup Setup, logger zerolog.Logger) ([][]float64, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	g, err := trainer.NewGame(setup.Game)
	if err != nil {
		return nil, err
	}
	numActions := g.NumActions()

	var snapshot predictor.Predictor
	if setup.Checkpoint != "" {
		model, err := predictor.LoadModel(setup.Checkpoint)
		if err != nil {
			return nil, err
		}
		snapshot = model.Snapshot()
	}

	contestants := make([]arena.Contestant, len(setup.Agents))
	names := make([]string, len(setup.Agents))
	for i, a := range setup.Agents {
		if a.Name == "" {
			a.Name = fmt.Sprintf("%s%d", a.Kind, a.ID)
		}
		names[i] = a.Name
		switch a.Kind {
		case KindNet:
			contestants[i] = arena.NetContestant(a.Name, snapshot, numActions)
		case KindZero:
			contestants[i] = arena.ZeroContestant(a.Name, snapshot, numActions, a.Playouts, a.Stochastic,
				searcher.WithCpuct(setup.Cpuct), searcher.WithMetrics())
		case KindMCTS:
			contestants[i] = arena.MCTSContestant(a.Name, numActions, a.Playouts,
				searcher.WithCpuct(setup.Cpuct), searcher.WithMetrics())
		case KindRandom:
			contestants[i] = arena.RandomContestant(a.Name, numActions)
		}
	}

	logger.Info().Msgf("starting %s experiment with %d agents...", setup.Name, len(contestants))
	results, err := arena.New(g, setup.Workers, setup.Seed, logger).Tournament(ctx, contestants, setup.Games)
	if err != nil {
		return nil, fmt.Errorf("tournament failed: %w", err)
	}
	scores := arena.ScoreMatrix(results)
	logger.Info().Msgf("completed %s experiment", setup.Name)

	for i, row := range scores {
		avg := 0.0
		for _, score := range row {
			avg += score
		}
		avg /= float64(len(row))
		logger.Info().
			Str("agent", names[i]).
			Float64("score", avg).
			Float64("win_rate", avg*0.5+0.5).
			Msgf("%s: %.3f", names[i], avg*0.5+0.5)
	}

	if err := store(setup, names, results, scores, logger); err != nil {
		return nil, err
	}
	return scores, nil
}

func store(setup Setup, names []string, results [][]arena.Result, scores [][]float64, logger zerolog.Logger) error {
	writer, err := metrics.NewWriter(setup.OutputDir, setup.Name)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}

	configs := make([]metrics.AgentConfig, len(setup.Agents))
	for i, a := range setup.Agents {
		a.Name = names[i]
		configs[i] = a
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return err
	}

	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}
	for i, row := range results {
		for j, result := range row {
			for _, g := range result.Games {
				count++
				gameRecords = append(gameRecords, metrics.GameRecord{
					ID:         count,
					Agent1:     setup.Agents[i].ID,
					Agent2:     setup.Agents[j].ID,
					Outcome:    g.Outcome,
					GameMetric: g.GameMetric,
				})
				for _, mm := range g.Moves {
					moveRecords = append(moveRecords, metrics.MoveRecord{Game: count, MoveMetric: mm})
				}
			}
		}
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return err
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return err
	}
	if err := writer.WriteScores(names, scores); err != nil {
		return err
	}
	logger.Info().Str("dir", writer.Dir()).Msg("stored experiment records")
	return nil
}
