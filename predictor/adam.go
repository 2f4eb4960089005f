package predictor

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adam keeps first and second moment estimates per parameter. Weight decay is
// added to the gradient before the moments are updated.
type adam struct {
	lr, beta1, beta2, eps, decay float64

	t    int
	m, v [][]float64
}

func newAdam(lr, decay float64, params []*mat.Dense) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, decay: decay}
	a.reset(params)
	return a
}

func (a *adam) reset(params []*mat.Dense) {
	a.t = 0
	a.m = make([][]float64, len(params))
	a.v = make([][]float64, len(params))
	for k, p := range params {
		size := len(p.RawMatrix().Data)
		a.m[k] = make([]float64, size)
		a.v[k] = make([]float64, size)
	}
}

func (a *adam) step(params, grads []*mat.Dense) {
	if len(params) != len(grads) {
		panic("parameter and gradient counts differ")
	}
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for k, p := range params {
		w := p.RawMatrix().Data
		g := grads[k].RawMatrix().Data
		m, v := a.m[k], a.v[k]
		for i := range w {
			gi := g[i] + a.decay*w[i]
			m[i] = a.beta1*m[i] + (1-a.beta1)*gi
			v[i] = a.beta2*v[i] + (1-a.beta2)*gi*gi
			w[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
}
