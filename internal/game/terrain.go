package game

import (
	"math"
	"math/rand/v2"
)

// Terrain is a height-field with one sample per integer x in [0, Width).
// Larger values are lower on screen; y grows downward.
type Terrain []float64

// GenerateTerrain draws a new height-field:
//
//	height(x) = Baseline + Amplitude*sin(x*Frequency) + U[0, Jitter)
//
// rng may be nil, in which case the package-level source is used.
func GenerateTerrain(cfg Config, rng *rand.Rand) Terrain {
	t := make(Terrain, cfg.Width)
	for x := range t {
		var jitter float64
		if cfg.Jitter > 0 {
			if rng != nil {
				jitter = rng.Float64() * cfg.Jitter
			} else {
				jitter = rand.Float64() * cfg.Jitter
			}
		}
		t[x] = cfg.Baseline + cfg.Amplitude*math.Sin(float64(x)*cfg.Frequency) + jitter
	}
	return t
}

// HeightAt returns the sample at column x, or floor for columns outside the field.
func (t Terrain) HeightAt(x int, floor float64) float64 {
	if x < 0 || x >= len(t) {
		return floor
	}
	return t[x]
}
