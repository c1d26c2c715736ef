package kernel

import "math"

// GeneratorState is one lane's xorshift128+ state. It is mutated in place by
// every draw and must never be shared between lanes. The all-zero pair is a
// fixed point of the recurrence; seeding code is responsible for avoiding it.
type GeneratorState struct {
	S0 uint64
	S1 uint64
}

// IsDegenerate reports whether the state is the all-zero fixed point.
func (g *GeneratorState) IsDegenerate() bool {
	return g.S0 == 0 && g.S1 == 0
}

// Uint64 advances the state one step and returns the sum of the new words.
func (g *GeneratorState) Uint64() uint64 {
	s1 := g.S0
	s0 := g.S1
	g.S0 = s0
	s1 ^= s1 << 23
	g.S1 = s1 ^ s0 ^ (s1 >> 18) ^ (s0 >> 5)
	return g.S0 + g.S1
}

// 2^-53
const uniformScale = 1.0 / (1 << 53)

// NextUniform returns a uniform deviate in [0,1) built from the top 53 bits
// of one generator step.
func (g *GeneratorState) NextUniform() float64 {
	return float64(g.Uint64()>>11) * uniformScale
}

// NextNormalPair returns two independent normal deviates using the
// Box-Muller transform. It always consumes exactly two uniform draws.
func (g *GeneratorState) NextNormalPair(mean, stdDev float64) (float64, float64) {
	u1 := g.NextUniform()
	u2 := g.NextUniform()
	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	sin, cos := math.Sincos(theta)
	return mean + stdDev*r*cos, mean + stdDev*r*sin
}

// NextNormal returns the first deviate of NextNormalPair. The second deviate
// is discarded, so every call consumes two uniform draws.
func (g *GeneratorState) NextNormal(mean, stdDev float64) float64 {
	z, _ := g.NextNormalPair(mean, stdDev)
	return z
}
