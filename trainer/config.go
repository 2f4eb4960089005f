package trainer

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"zero/game"
	"zero/game/connectfour"
	"zero/game/tictactoe"
	"zero/predictor"
)

// Config holds every hyperparameter of a training run.
type Config struct {
	RunName   string `yaml:"run_name"`
	Game      string `yaml:"game"`
	ModelDir  string `yaml:"model_dir"`
	StatsDir  string `yaml:"stats_dir"`
	ExportDir string `yaml:"export_dir"` // parquet dumps of the training pool, disabled when empty
	InitModel string `yaml:"init_model"` // checkpoint to start from, fresh weights when empty

	GamesPerGeneration   int `yaml:"games_per_generation"`
	BatchesPerGeneration int `yaml:"batches_per_generation"`
	BatchSize            int `yaml:"batch_size"`
	BufferGames          int `yaml:"buffer_games"`
	BufferGamesMax       int `yaml:"buffer_games_max"`

	Hidden       int     `yaml:"hidden"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Device       string  `yaml:"device"`

	Playouts       int     `yaml:"playouts"`
	Cpuct          float64 `yaml:"c_puct"`
	Temperature    float64 `yaml:"temperature"`
	DirichletAlpha float64 `yaml:"dirichlet_alpha"`
	DirichletRatio float64 `yaml:"dirichlet_ratio"`

	SaveEvery        int   `yaml:"save_every"`
	EvalEvery        int   `yaml:"eval_every"`
	EvalGames        int   `yaml:"eval_games"`
	BaselinePlayouts []int `yaml:"baseline_playouts"`

	Workers        int    `yaml:"workers"`
	Seed           uint64 `yaml:"seed"`
	MaxGenerations int    `yaml:"max_generations"` // 0 runs until stopped
}

func DefaultConfig() Config {
	const games = 500
	return Config{
		Game:                 "connect_four",
		ModelDir:             "models",
		StatsDir:             "stats",
		GamesPerGeneration:   games,
		BatchesPerGeneration: 500,
		BatchSize:            256,
		BufferGames:          4 * games,
		BufferGamesMax:       20000,
		Hidden:               128,
		LearningRate:         1e-3,
		WeightDecay:          1e-4,
		Device:               predictor.CPU,
		Playouts:             100,
		Cpuct:                2.5,
		Temperature:          1,
		DirichletAlpha:       1,
		DirichletRatio:       0.25,
		SaveEvery:            10,
		EvalEvery:            10,
		EvalGames:            200,
		BaselinePlayouts:     []int{100, 200},
		Workers:              8,
		Seed:                 1,
	}
}

// LoadConfig reads a yaml file over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := NewGame(c.Game); err != nil {
		return err
	}
	positive := []struct {
		name  string
		value int
	}{
		{"games_per_generation", c.GamesPerGeneration},
		{"batches_per_generation", c.BatchesPerGeneration},
		{"batch_size", c.BatchSize},
		{"buffer_games", c.BufferGames},
		{"hidden", c.Hidden},
		{"playouts", c.Playouts},
		{"eval_games", c.EvalGames},
		{"workers", c.Workers},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	switch {
	case c.BufferGamesMax < c.BufferGames:
		return fmt.Errorf("buffer_games_max (%d) is below buffer_games (%d)", c.BufferGamesMax, c.BufferGames)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
	case c.WeightDecay < 0:
		return fmt.Errorf("weight_decay must not be negative, got %v", c.WeightDecay)
	case c.Cpuct <= 0:
		return fmt.Errorf("c_puct must be positive, got %v", c.Cpuct)
	case c.Temperature <= 0:
		return fmt.Errorf("temperature must be positive, got %v", c.Temperature)
	case c.DirichletAlpha <= 0:
		return fmt.Errorf("dirichlet_alpha must be positive, got %v", c.DirichletAlpha)
	case c.DirichletRatio < 0 || c.DirichletRatio > 1:
		return fmt.Errorf("dirichlet_ratio must be in [0, 1], got %v", c.DirichletRatio)
	case c.SaveEvery < 0 || c.EvalEvery < 0 || c.MaxGenerations < 0:
		return errors.New("save_every, eval_every and max_generations must not be negative")
	case c.SaveEvery > 0 && c.ModelDir == "":
		return errors.New("model_dir is required when saving checkpoints")
	}
	for _, k := range c.BaselinePlayouts {
		if k <= 0 {
			return fmt.Errorf("baseline_playouts must be positive, got %d", k)
		}
	}
	return nil
}

// NewGame looks up a rules engine by name.
func NewGame(name string) (game.Game, error) {
	switch name {
	case connectfour.New().Name():
		return connectfour.New(), nil
	case tictactoe.New().Name():
		return tictactoe.New(), nil
	default:
		return nil, fmt.Errorf("unknown game %q", name)
	}
}
