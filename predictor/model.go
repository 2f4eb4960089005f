package predictor

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"zero/game"
)

var (
	ErrNotTraining  = errors.New("model is not in training mode")
	ErrNotInference = errors.New("model is not in inference mode")
)

type Mode int

const (
	Inference Mode = iota
	Training
)

func (m Mode) String() string {
	if m == Training {
		return "training"
	}
	return "inference"
}

// Config describes a two-head network: a shared ReLU layer feeding a softmax
// policy head and a tanh value head.
type Config struct {
	Inputs       int     `yaml:"inputs"`
	Hidden       int     `yaml:"hidden"`
	Actions      int     `yaml:"actions"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Seed         uint64  `yaml:"seed"`
	Device       string  `yaml:"device"`
}

// Batch holds training targets aligned by row.
type Batch struct {
	Encodings [][]float32
	Policies  [][]float32
	Values    []float32
}

type Loss struct {
	Policy float64
	Value  float64
}

func (l Loss) Total() float64 {
	return l.Policy + l.Value
}

// Model is the trainable predictor. It is owned by a single goroutine; use
// Snapshot to hand parameters to workers.
type Model struct {
	cfg       Config
	device    string
	params    *params
	optimizer *adam
	mode      Mode
	steps     int
}

func NewModel(cfg Config) *Model {
	if cfg.Inputs <= 0 || cfg.Hidden <= 0 || cfg.Actions <= 0 {
		panic("model dimensions must be positive")
	}
	if cfg.LearningRate <= 0 {
		panic("learning rate must be positive")
	}
	src := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))
	p := &params{
		w1: initWeights(cfg.Hidden, cfg.Inputs, src),
		b1: mat.NewDense(1, cfg.Hidden, nil),
		wp: initWeights(cfg.Actions, cfg.Hidden, src),
		bp: mat.NewDense(1, cfg.Actions, nil),
		wv: initWeights(1, cfg.Hidden, src),
		bv: mat.NewDense(1, 1, nil),
	}
	return &Model{
		cfg:       cfg,
		device:    ResolveDevice(cfg.Device),
		params:    p,
		optimizer: newAdam(cfg.LearningRate, cfg.WeightDecay, p.all()),
		mode:      Inference,
	}
}

// initWeights draws from the Glorot uniform range.
func initWeights(rows, cols int, src rand.Source) *mat.Dense {
	limit := math.Sqrt(6 / float64(rows+cols))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

func (m *Model) Config() Config { return m.cfg }
func (m *Model) Device() string { return m.device }
func (m *Model) Mode() Mode     { return m.mode }
func (m *Model) Steps() int     { return m.steps }

// Train switches to training mode.
func (m *Model) Train() { m.mode = Training }

// Eval switches to inference mode.
func (m *Model) Eval() { m.mode = Inference }

func (m *Model) Predict(encoding []float32) ([]float64, float64, error) {
	if m.mode != Inference {
		return nil, 0, ErrNotInference
	}
	return m.params.predict(encoding, m.cfg.Inputs)
}

// Snapshot returns an immutable copy of the current parameters.
func (m *Model) Snapshot() Predictor {
	return &snapshot{params: m.params.clone(), inputs: m.cfg.Inputs}
}

// TrainBatch applies one optimizer update using cross-entropy on the policy
// head plus squared error on the value head.
func (m *Model) TrainBatch(batch Batch) (Loss, error) {
	if m.mode != Training {
		return Loss{}, ErrNotTraining
	}
	n := len(batch.Encodings)
	if n == 0 {
		return Loss{}, errors.New("empty batch")
	}
	if len(batch.Policies) != n || len(batch.Values) != n {
		return Loss{}, fmt.Errorf("batch has %d encodings, %d policies and %d values", n, len(batch.Policies), len(batch.Values))
	}

	x := mat.NewDense(n, m.cfg.Inputs, nil)
	target := mat.NewDense(n, m.cfg.Actions, nil)
	for i := 0; i < n; i++ {
		if len(batch.Encodings[i]) != m.cfg.Inputs {
			return Loss{}, fmt.Errorf("encoding %d has %d values, want %d", i, len(batch.Encodings[i]), m.cfg.Inputs)
		}
		if len(batch.Policies[i]) != m.cfg.Actions {
			return Loss{}, fmt.Errorf("policy %d has %d values, want %d", i, len(batch.Policies[i]), m.cfg.Actions)
		}
		x.SetRow(i, game.Convert[float64](batch.Encodings[i]))
		target.SetRow(i, game.Convert[float64](batch.Policies[i]))
	}

	act := m.params.forward(x)
	loss, grads := m.params.backward(act, target, batch.Values)
	m.optimizer.step(m.params.all(), grads.all())
	m.steps++
	return loss, nil
}

type snapshot struct {
	params *params
	inputs int
}

func (s *snapshot) Predict(encoding []float32) ([]float64, float64, error) {
	return s.params.predict(encoding, s.inputs)
}

type params struct {
	w1, b1 *mat.Dense // shared hidden layer
	wp, bp *mat.Dense // policy head
	wv, bv *mat.Dense // value head
}

func (p *params) all() []*mat.Dense {
	return []*mat.Dense{p.w1, p.b1, p.wp, p.bp, p.wv, p.bv}
}

func (p *params) clone() *params {
	return &params{
		w1: mat.DenseCopyOf(p.w1),
		b1: mat.DenseCopyOf(p.b1),
		wp: mat.DenseCopyOf(p.wp),
		bp: mat.DenseCopyOf(p.bp),
		wv: mat.DenseCopyOf(p.wv),
		bv: mat.DenseCopyOf(p.bv),
	}
}

type activations struct {
	x      *mat.Dense
	hidden *mat.Dense
	probs  *mat.Dense
	values []float64
}

func (p *params) predict(encoding []float32, inputs int) ([]float64, float64, error) {
	if len(encoding) != inputs {
		return nil, 0, fmt.Errorf("encoding has %d values, want %d", len(encoding), inputs)
	}
	x := mat.NewDense(1, inputs, game.Convert[float64](encoding))
	act := p.forward(x)
	return mat.Row(nil, 0, act.probs), act.values[0], nil
}

func (p *params) forward(x *mat.Dense) activations {
	rows, _ := x.Dims()

	var hidden mat.Dense
	hidden.Mul(x, p.w1.T())
	addBias(&hidden, p.b1)
	hidden.Apply(func(_, _ int, v float64) float64 { return max(v, 0) }, &hidden)

	var probs mat.Dense
	probs.Mul(&hidden, p.wp.T())
	addBias(&probs, p.bp)
	for i := 0; i < rows; i++ {
		softmax(probs.RawRowView(i))
	}

	var raw mat.Dense
	raw.Mul(&hidden, p.wv.T())
	values := make([]float64, rows)
	for i := range values {
		values[i] = math.Tanh(raw.At(i, 0) + p.bv.At(0, 0))
	}

	return activations{x: x, hidden: &hidden, probs: &probs, values: values}
}

func (p *params) backward(act activations, target *mat.Dense, values []float32) (Loss, *params) {
	const eps = 1e-12
	n, actions := target.Dims()
	scale := 1 / float64(n)

	var loss Loss
	dLogits := mat.NewDense(n, actions, nil)
	dValue := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		t := target.RawRowView(i)
		probs := act.probs.RawRowView(i)
		d := dLogits.RawRowView(i)
		mass := floats.Sum(t)
		for k := range t {
			loss.Policy -= t[k] * math.Log(probs[k]+eps)
			d[k] = (probs[k]*mass - t[k]) * scale
		}
		v := act.values[i]
		diff := v - float64(values[i])
		loss.Value += diff * diff
		dValue.Set(i, 0, 2*diff*(1-v*v)*scale)
	}
	loss.Policy *= scale
	loss.Value *= scale

	grads := &params{
		w1: &mat.Dense{},
		wp: &mat.Dense{},
		wv: &mat.Dense{},
	}
	grads.wp.Mul(dLogits.T(), act.hidden)
	grads.bp = columnSums(dLogits)
	grads.wv.Mul(dValue.T(), act.hidden)
	grads.bv = columnSums(dValue)

	var dHidden, fromValue mat.Dense
	dHidden.Mul(dLogits, p.wp)
	fromValue.Mul(dValue, p.wv)
	dHidden.Add(&dHidden, &fromValue)
	dHidden.Apply(func(i, j int, v float64) float64 {
		if act.hidden.At(i, j) <= 0 {
			return 0
		}
		return v
	}, &dHidden)
	grads.w1.Mul(dHidden.T(), act.x)
	grads.b1 = columnSums(&dHidden)

	return loss, grads
}

func addBias(m *mat.Dense, bias *mat.Dense) {
	rows, _ := m.Dims()
	b := bias.RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(m.RawRowView(i), b)
	}
}

func columnSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	sums := mat.NewDense(1, cols, nil)
	out := sums.RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(out, m.RawRowView(i))
	}
	return sums
}

func softmax(row []float64) {
	top := floats.Max(row)
	for i, v := range row {
		row[i] = math.Exp(v - top)
	}
	floats.Scale(1/floats.Sum(row), row)
}
