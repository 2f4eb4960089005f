package searcher

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distmv"

	"zero/experiments/metrics"
	"zero/game"
)

var ErrTerminal = errors.New("cannot search a terminal state")

type Option func(mcts *MCTS)

// MCTS runs PUCT search guided by an Evaluator. A tree is built per call and
// discarded afterwards. An MCTS is not safe for concurrent use.
type MCTS struct {
	numActions     int
	evaluator      Evaluator
	playouts       int
	cpuct          float64
	dirichletAlpha float64
	dirichletRatio float64
	temperature    float64
	rng            *rand.Rand
	metrics        metrics.Collector
}

// Result of a search. Visits is nil when the root had a single legal action.
type Result struct {
	Action int
	Policy []float64
	Visits []int
	Metric metrics.SearchMetric
}

func WithPlayouts(playouts int) Option {
	return func(m *MCTS) {
		if playouts > 0 {
			m.playouts = playouts
		}
	}
}

func WithCpuct(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.cpuct = c
		}
	}
}

func WithDirichlet(alpha, ratio float64) Option {
	return func(m *MCTS) {
		if alpha > 0 {
			m.dirichletAlpha = alpha
		}
		if ratio >= 0 && ratio <= 1 {
			m.dirichletRatio = ratio
		}
	}
}

func WithTemperature(temperature float64) Option {
	return func(m *MCTS) {
		if temperature > 0 {
			m.temperature = temperature
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(numActions int, evaluator Evaluator, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		numActions:     numActions,
		evaluator:      evaluator,
		playouts:       DefaultPlayouts,
		cpuct:          DefaultCpuct,
		dirichletAlpha: DefaultDirichletAlpha,
		dirichletRatio: DefaultDirichletRatio,
		temperature:    1.0,
		metrics:        metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.numActions <= 0 {
		panic("Must have at least one action")
	}
	if m.evaluator == nil {
		panic("Must specify an evaluator")
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

func (m *MCTS) Playouts() int { return m.playouts }

// Search runs playouts from state and picks an action from the root visit
// counts: the most visited one, or a sample proportional to visits^(1/T) when
// stochastic is set. Noise mixes a Dirichlet sample into the root prior.
func (m *MCTS) Search(state game.State, playouts int, noise, stochastic bool) (Result, error) {
	if state.IsTerminal() {
		return Result{}, ErrTerminal
	}
	if playouts <= 0 {
		return Result{}, fmt.Errorf("playouts must be positive, got %d", playouts)
	}
	m.metrics.Start()

	legal := state.LegalActions()
	if len(legal) == 1 {
		m.metrics.Skip()
		return Result{
			Action: legal[0],
			Policy: game.OneHot[float64](m.numActions, legal[0]),
			Metric: m.metrics.Complete(),
		}, nil
	}

	root := newNode(state)
	if _, err := m.evaluate(root); err != nil {
		return Result{}, err
	}
	root.n = 1
	if noise {
		m.addNoise(root)
	}

	for i := 0; i < playouts; i++ {
		if err := m.simulate(root); err != nil {
			return Result{}, err
		}
	}

	visits := make([]int, m.numActions)
	for i, a := range root.actions {
		visits[a] = root.visits[i]
	}
	policy := make([]float64, m.numActions)
	for a, v := range visits {
		policy[a] = float64(v) / float64(playouts)
	}

	var action int
	if stochastic {
		action = root.actions[sample(adjustTemperature(root.visits, m.temperature), m.rng)]
	} else {
		action = root.actions[findMax(root.visits)]
	}

	return Result{Action: action, Policy: policy, Visits: visits, Metric: m.metrics.Complete()}, nil
}

type edge struct {
	node  *node
	index int
}

func (m *MCTS) simulate(root *node) error {
	path, leaf := selectThenDescend(root, m.cpuct)

	var value float64
	if leaf.terminal {
		value = game.Outcome(leaf.state, leaf.player)
		m.metrics.AddTerminal()
	} else {
		v, err := m.evaluate(leaf)
		if err != nil {
			return err
		}
		value = v
		m.metrics.AddExpansion()
	}

	leaf.n++
	backup(path, leaf.player, value)
	m.metrics.AddPlayout(len(path))
	return nil
}

func selectThenDescend(root *node, c float64) ([]edge, *node) {
	var path []edge
	current := root
	for current.expanded && !current.terminal {
		i := current.pickChild(c)
		path = append(path, edge{node: current, index: i})
		current = current.child(i)
	}
	return path, current
}

// evaluate expands leaf and returns its value for the player to move.
func (m *MCTS) evaluate(leaf *node) (float64, error) {
	policy, value, err := m.evaluator.Evaluate(leaf.state)
	if err != nil {
		return 0, err
	}
	legal := leaf.state.LegalActions()
	priors, err := maskPriors(policy, legal, m.numActions)
	if err != nil {
		return 0, err
	}
	leaf.expand(legal, priors)
	return value, nil
}

func (m *MCTS) addNoise(root *node) {
	alpha := make([]float64, len(root.actions))
	for i := range alpha {
		alpha[i] = m.dirichletAlpha
	}
	noise := distmv.NewDirichlet(alpha, m.rng).Rand(nil)
	for i := range root.priors {
		root.priors[i] = (1-m.dirichletRatio)*root.priors[i] + m.dirichletRatio*noise[i]
	}
}

func backup(path []edge, player int, value float64) {
	for i := len(path) - 1; i >= 0; i-- {
		e := path[i]
		v := value
		if e.node.player != player { // Value flips at every change of mover
			v = -value
		}
		e.node.update(e.index, v)
	}
}

// maskPriors keeps the prior mass of legal actions and renormalizes it,
// falling back to a uniform prior when no mass is left.
func maskPriors(policy []float64, legal []int, numActions int) ([]float64, error) {
	if len(policy) != numActions {
		return nil, fmt.Errorf("prior has %d entries, want %d", len(policy), numActions)
	}
	priors := make([]float64, len(legal))
	for i, a := range legal {
		if a < 0 || a >= numActions {
			return nil, fmt.Errorf("legal action %d outside action space of %d", a, numActions)
		}
		priors[i] = policy[a]
	}
	if !game.Normalize(priors) {
		for i := range priors {
			priors[i] = 1 / float64(len(priors))
		}
	}
	return priors, nil
}
