package searcher

import (
	"math"
	"math/rand/v2"
)

func adjustTemperature(visits []int, temperature float64) []float64 {
	// Scale by the max count first so visits^(1/T) cannot overflow
	most := 0
	for _, visit := range visits {
		most = max(most, visit)
	}
	adjusted := make([]float64, len(visits))
	if most == 0 {
		return adjusted
	}
	exponent := 1.0 / temperature
	sum := 0.0
	for i, visit := range visits {
		prob := math.Pow(float64(visit)/float64(most), exponent)
		sum += prob
		adjusted[i] = prob
	}
	// Normalize
	for i := range adjusted {
		adjusted[i] /= sum
	}
	return adjusted
}

func sample(policy []float64, rng *rand.Rand) int {
	sampled := rng.Float64()
	cumulative := 0.0
	last := -1
	for i, prob := range policy {
		if prob == 0 {
			continue
		}
		last = i
		cumulative += prob
		if sampled < cumulative {
			return i
		}
	}
	return last // Fallback in case of rounding errors
}

func findMax(visits []int) int {
	best := 0
	for i, visit := range visits[1:] {
		if visit > visits[best] {
			best = i + 1
		}
	}
	return best
}
