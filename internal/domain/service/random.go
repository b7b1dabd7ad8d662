package service

// Random is the source of uniform randomness used by the simulation.
// *math/rand.Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}
