package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zero/buffer"
	"zero/game"
	"zero/predictor"
	"zero/selfplay"
)

var ErrEmptyPool = errors.New("no training examples in the pool")

type Phase int

const (
	Idle Phase = iota
	Generating
	Training
	Evaluating
	Checkpointing
)

func (p Phase) String() string {
	switch p {
	case Generating:
		return "generating"
	case Training:
		return "training"
	case Evaluating:
		return "evaluating"
	case Checkpointing:
		return "checkpointing"
	default:
		return "idle"
	}
}

// Trainer owns the model and the replay buffer. Only the goroutine calling
// Run or Step may touch them; self-play and evaluation workers get snapshots.
type Trainer struct {
	cfg        Config
	game       game.Game
	runID      string
	model      *predictor.Model
	buffer     *buffer.ReplayBuffer
	generator  *selfplay.Generator
	rng        *rand.Rand
	generation int
	phase      Phase
	stats      Stats
	log        zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	g, err := NewGame(cfg.Game)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if cfg.RunName == "" {
		cfg.RunName = fmt.Sprintf("%s_%s", g.Name(), runID[:8])
	}
	logger = logger.With().Str("run", cfg.RunName).Logger()

	var model *predictor.Model
	if cfg.InitModel != "" {
		model, err = predictor.LoadModel(cfg.InitModel)
		if err != nil {
			return nil, err
		}
		mc := model.Config()
		if mc.Inputs != g.EncodingSize() || mc.Actions != g.NumActions() {
			return nil, fmt.Errorf("checkpoint %s does not fit %s", cfg.InitModel, g.Name())
		}
		logger.Info().Str("path", cfg.InitModel).Int("steps", model.Steps()).Msg("loaded initial model")
	} else {
		model = predictor.NewModel(predictor.Config{
			Inputs:       g.EncodingSize(),
			Hidden:       cfg.Hidden,
			Actions:      g.NumActions(),
			LearningRate: cfg.LearningRate,
			WeightDecay:  cfg.WeightDecay,
			Seed:         cfg.Seed,
			Device:       cfg.Device,
		})
	}

	generator := selfplay.NewGenerator(g, selfplay.Config{
		Workers:        cfg.Workers,
		Playouts:       cfg.Playouts,
		Cpuct:          cfg.Cpuct,
		DirichletAlpha: cfg.DirichletAlpha,
		DirichletRatio: cfg.DirichletRatio,
		Temperature:    cfg.Temperature,
		Seed:           cfg.Seed,
	}, logger)

	return &Trainer{
		cfg:       cfg,
		game:      g,
		runID:     runID,
		model:     model,
		buffer:    buffer.New(cfg.BufferGames),
		generator: generator,
		rng:       rand.New(rand.NewPCG(cfg.Seed, 0x7a11)),
		stats:     Stats{},
		log:       logger,
	}, nil
}

func (t *Trainer) Config() Config               { return t.cfg }
func (t *Trainer) RunID() string                { return t.runID }
func (t *Trainer) Model() *predictor.Model      { return t.model }
func (t *Trainer) Buffer() *buffer.ReplayBuffer { return t.buffer }
func (t *Trainer) Generation() int              { return t.generation }
func (t *Trainer) Phase() Phase                 { return t.phase }
func (t *Trainer) Stats() Stats                 { return t.stats }

// Run evaluates the starting model, then cycles through generations until
// ctx is cancelled or MaxGenerations is reached. Cancellation is the normal
// way to stop and is not reported as an error; the model is checkpointed
// before returning.
func (t *Trainer) Run(ctx context.Context) error {
	t.log.Info().
		Str("game", t.game.Name()).
		Str("device", t.model.Device()).
		Int("workers", t.cfg.Workers).
		Msg("starting training")

	if t.cfg.EvalEvery > 0 {
		if err := t.Evaluate(ctx); err != nil {
			return t.stopped(err)
		}
	}
	for t.cfg.MaxGenerations == 0 || t.generation < t.cfg.MaxGenerations {
		if err := t.Step(ctx); err != nil {
			return t.stopped(err)
		}
	}

	if t.cfg.SaveEvery > 0 && t.generation%t.cfg.SaveEvery != 0 {
		if err := t.Checkpoint(); err != nil {
			return err
		}
	}
	t.log.Info().Int("generations", t.generation).Msg("training finished")
	return nil
}

func (t *Trainer) stopped(err error) error {
	t.phase = Idle
	if !errors.Is(err, context.Canceled) {
		return err
	}
	t.log.Warn().Int("generation", t.generation).Msg("training interrupted")
	if t.cfg.SaveEvery > 0 && t.generation > 0 {
		return t.Checkpoint()
	}
	return nil
}

// Step runs one generation: self-play, buffer update, training, and the
// periodic evaluation and checkpoint. The generation counts as started once
// its games are buffered, so calling Step again after a later failure moves
// on to the next generation.
func (t *Trainer) Step(ctx context.Context) error {
	gen := t.generation + 1
	start := time.Now()

	t.phase = Generating
	t.model.Eval()
	records, err := t.generator.Generate(ctx, t.model, t.cfg.GamesPerGeneration, gen)
	if err != nil {
		return fmt.Errorf("failed to generate games for generation %d: %w", gen, err)
	}
	if err := t.buffer.AddGeneration(records); err != nil {
		return err
	}
	// The games are buffered, so a failure below must not reuse gen on retry
	t.generation = gen
	if gen%2 == 0 {
		t.buffer.Grow(t.cfg.GamesPerGeneration, t.cfg.BufferGamesMax)
	}
	evicted := t.buffer.Evict()
	pool := t.buffer.FlattenAndDeduplicate()
	t.log.Info().
		Int("generation", gen).
		Int("games", t.buffer.Len()).
		Int("capacity", t.buffer.Capacity()).
		Int("evicted", evicted).
		Int("examples", t.buffer.Examples()).
		Int("unique", len(pool)).
		Dur("elapsed", time.Since(start)).
		Msg("self-play complete")

	if t.cfg.ExportDir != "" {
		path := buffer.ExportPath(t.cfg.ExportDir, t.cfg.RunName, gen)
		if err := buffer.WriteParquet(path, pool); err != nil {
			return err
		}
	}

	t.phase = Training
	if _, err := t.Train(pool); err != nil {
		return err
	}

	if t.cfg.EvalEvery > 0 && gen%t.cfg.EvalEvery == 0 {
		if err := t.Evaluate(ctx); err != nil {
			return err
		}
	}
	if t.cfg.SaveEvery > 0 && gen%t.cfg.SaveEvery == 0 {
		if err := t.Checkpoint(); err != nil {
			return err
		}
	}
	t.phase = Idle
	t.log.Info().Int("generation", gen).Dur("elapsed", time.Since(start)).Msg("generation complete")
	return nil
}

// Train runs BatchesPerGeneration optimizer steps on batches sampled
// uniformly with replacement from pool and returns the mean loss.
func (t *Trainer) Train(pool []buffer.Example) (predictor.Loss, error) {
	if len(pool) == 0 {
		return predictor.Loss{}, ErrEmptyPool
	}
	t.model.Train()
	defer t.model.Eval()

	var mean predictor.Loss
	for b := 0; b < t.cfg.BatchesPerGeneration; b++ {
		loss, err := t.model.TrainBatch(t.sample(pool))
		if err != nil {
			return predictor.Loss{}, fmt.Errorf("failed to train batch %d: %w", b, err)
		}
		mean.Policy += loss.Policy
		mean.Value += loss.Value
	}
	mean.Policy /= float64(t.cfg.BatchesPerGeneration)
	mean.Value /= float64(t.cfg.BatchesPerGeneration)

	t.log.Info().
		Int("generation", t.generation).
		Float64("policy_loss", mean.Policy).
		Float64("value_loss", mean.Value).
		Float64("loss", mean.Total()).
		Msg("training complete")
	return mean, nil
}

func (t *Trainer) sample(pool []buffer.Example) predictor.Batch {
	numActions := t.game.NumActions()
	batch := predictor.Batch{
		Encodings: make([][]float32, t.cfg.BatchSize),
		Policies:  make([][]float32, t.cfg.BatchSize),
		Values:    make([]float32, t.cfg.BatchSize),
	}
	for i := range batch.Encodings {
		ex := pool[t.rng.IntN(len(pool))]
		batch.Encodings[i] = ex.Encoding
		batch.Policies[i] = ex.Policy
		if len(ex.Policy) == 0 {
			// value-only example: a zero target leaves the policy head untouched
			batch.Policies[i] = make([]float32, numActions)
		}
		batch.Values[i] = ex.Value
	}
	return batch
}

// Checkpoint saves the model under the current generation.
func (t *Trainer) Checkpoint() error {
	prev := t.phase
	t.phase = Checkpointing
	defer func() { t.phase = prev }()

	path := predictor.CheckpointPath(t.cfg.ModelDir, t.cfg.RunName, t.generation)
	if err := t.model.Save(path); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	t.log.Info().Int("generation", t.generation).Str("path", path).Msg("saved checkpoint")
	return nil
}
