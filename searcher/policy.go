package searcher

import "math"

// Hyperparameters for MCTS

const DefaultCpuct = 2.5 // Exploration constant

const DefaultPlayouts = 100

const (
	DefaultDirichletAlpha = 1.0
	DefaultDirichletRatio = 0.25
)

type puct struct {
	scale float64
}

func newPUCT(c float64, N int) puct {
	if N == 0 {
		panic("N cannot be 0")
	}
	return puct{scale: c * math.Sqrt(float64(N))}
}

func (p puct) evaluate(q, prior float64, n int) float64 {
	// PUCT = Q + c*P*sqrt(N)/(1+n)
	return q + p.scale*prior/float64(1+n)
}
