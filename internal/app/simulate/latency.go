package simulate

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Latency is an ex-Gaussian reaction time model: a normal component plus an
// exponential tail with the given rate.
type Latency struct {
	Mu    float64
	Sigma float64
	Rate  float64
}

var DefaultLatency = Latency{Mu: 500, Sigma: 50, Rate: 1.0 / 150}

const maxResamples = 1000

// Sample draws a non-negative reaction time in milliseconds.
func (l Latency) Sample(rng *rand.Rand) float64 {
	normal := distuv.Normal{Mu: l.Mu, Sigma: l.Sigma}
	tail := distuv.Exponential{Rate: l.Rate}
	var v float64
	for range maxResamples {
		v = normal.Quantile(openUnit(rng)) + tail.Quantile(openUnit(rng))
		if v >= 0 {
			return v
		}
	}
	return math.Max(0, v)
}

func openUnit(rng *rand.Rand) float64 {
	for {
		if p := rng.Float64(); p > 0 {
			return p
		}
	}
}
