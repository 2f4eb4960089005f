package searcher

import "zero/game"

// node is a position in the search tree. Per-action statistics are indexed
// like actions; values are accumulated from the perspective of player.
type node struct {
	state    game.State
	player   int
	terminal bool
	actions  []int
	priors   []float64
	visits   []int
	values   []float64
	children []*node
	n        int // playouts that reached this node, including the one that expanded it
	expanded bool
}

func newNode(state game.State) *node {
	return &node{
		state:    state,
		player:   state.Player(),
		terminal: state.IsTerminal(),
	}
}

func (d *node) expand(actions []int, priors []float64) {
	if d.expanded {
		panic("node is already expanded")
	}
	if len(actions) != len(priors) {
		panic("priors do not match actions")
	}
	d.actions = actions
	d.priors = priors
	d.visits = make([]int, len(actions))
	d.values = make([]float64, len(actions))
	d.children = make([]*node, len(actions))
	d.expanded = true
}

func (d *node) pickChild(c float64) int {
	if d.n == 0 {
		panic("node has children but no visits")
	}

	policy := newPUCT(c, d.n)
	best := -1
	bestScore := 0.0
	for i := range d.actions {
		q := 0.0
		if d.visits[i] > 0 {
			q = d.values[i] / float64(d.visits[i])
		}
		score := policy.evaluate(q, d.priors[i], d.visits[i])
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func (d *node) child(i int) *node {
	if d.children[i] == nil {
		d.children[i] = newNode(d.state.Play(d.actions[i]))
	}
	return d.children[i]
}

func (d *node) update(i int, value float64) {
	d.n++
	d.visits[i]++
	d.values[i] += value
}
