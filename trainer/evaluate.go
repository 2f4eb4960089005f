package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"zero/arena"
	"zero/searcher"
)

// Stats is the rolling evaluation history keyed by metric name. The
// "generation" series lines up with every matchup series.
type Stats map[string][]float64

const generationKey = "generation"

type matchup struct {
	key  string
	a, b arena.Contestant
}

func (t *Trainer) matchups() []matchup {
	numActions := t.game.NumActions()
	snapshot := t.model.Snapshot()
	net := arena.NetContestant("net", snapshot, numActions)
	zero := arena.ZeroContestant("zero", snapshot, numActions, t.cfg.Playouts, false, searcher.WithCpuct(t.cfg.Cpuct))

	matchups := []matchup{{key: "net_vs_random", a: net, b: arena.RandomContestant("random", numActions)}}
	for _, k := range t.cfg.BaselinePlayouts {
		baseline := arena.MCTSContestant(fmt.Sprintf("mcts%d", k), numActions, k)
		matchups = append(matchups,
			matchup{key: "net_vs_" + baseline.Name, a: net, b: baseline},
			matchup{key: "zero_vs_" + baseline.Name, a: zero, b: baseline},
		)
	}
	return matchups
}

// Evaluate plays the current model against the baselines, appends the scores
// to the history and rewrites the stats file.
func (t *Trainer) Evaluate(ctx context.Context) error {
	prev := t.phase
	t.phase = Evaluating
	defer func() { t.phase = prev }()

	a := arena.New(t.game, t.cfg.Workers, t.cfg.Seed+uint64(t.generation), t.log)
	scores := map[string]float64{}
	for _, m := range t.matchups() {
		result, err := a.PlayMatch(ctx, m.a, m.b, t.cfg.EvalGames)
		if err != nil {
			return fmt.Errorf("failed to evaluate %s: %w", m.key, err)
		}
		scores[m.key] = result.Score
		t.log.Info().
			Int("generation", t.generation).
			Str("matchup", m.key).
			Float64("score", result.Score).
			Float64("win_rate", result.WinRate()).
			Msgf("%s: %.3f", m.key, result.WinRate())
	}

	t.stats[generationKey] = append(t.stats[generationKey], float64(t.generation))
	for key, score := range scores {
		t.stats[key] = append(t.stats[key], score)
	}
	return t.writeStats()
}

func (t *Trainer) statsPath() string {
	return filepath.Join(t.cfg.StatsDir, t.cfg.RunName+".json")
}

func (t *Trainer) writeStats() error {
	if t.cfg.StatsDir == "" {
		return nil
	}
	if err := os.MkdirAll(t.cfg.StatsDir, 0755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}
	data, err := json.MarshalIndent(t.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	path := t.statsPath()
	if err := os.WriteFile(path+".tmp", data, 0644); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		return fmt.Errorf("failed to move stats into place: %w", err)
	}
	return nil
}

// ReadStats loads a stats file written by a previous run.
func ReadStats(path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats %s: %w", path, err)
	}
	return stats, nil
}
