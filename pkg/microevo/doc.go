// Package microevo is the public API of the trainer.
//
// A host environment creates a Population, calls Tick once per frame, asks
// GetOutputs for every agent and reports fitness back. When Tick returns true
// the population was regenerated: the best half survives and the worst half is
// replaced by mutated copies of it.
//
// Client wraps a headless seek arena for batch runs and keeps their fitness
// history in a memory or sqlite store.
package microevo
