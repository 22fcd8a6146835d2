package scape

import "time"

// Environment is the host side of a training run: it owns one body per agent,
// turns bodies into network inputs and network outputs into fitness.
type Environment interface {
	Name() string
	InputSize() int
	OutputSize() int
	// Reset rebuilds the bodies for a fresh population of agents.
	Reset(agents int)
	Sense(agent int) ([]float64, error)
	// Step applies a network output to an agent and returns its fitness delta.
	Step(agent int, output []float64, dt time.Duration) (float64, error)
	// Advance moves shared state, such as the food, forward by dt.
	Advance(dt time.Duration)
}
