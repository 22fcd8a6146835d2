package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoFitness = errors.New("fitness values must not be empty")

// Summary describes the fitness distribution of one generation.
type Summary struct {
	Best   float64 `json:"best"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	StdDev float64 `json:"std_dev"`
}

// Summarize computes best, mean, min and population standard deviation.
func Summarize(fitness []float64) (Summary, error) {
	if len(fitness) == 0 {
		return Summary{}, ErrNoFitness
	}
	mean, std := stat.PopMeanStdDev(fitness, nil)
	return Summary{
		Best:   floats.Max(fitness),
		Mean:   mean,
		Min:    floats.Min(fitness),
		StdDev: std,
	}, nil
}

// Improvement is the change in best fitness from the first to the last summary.
func Improvement(history []Summary) float64 {
	if len(history) < 2 {
		return 0
	}
	return history[len(history)-1].Best - history[0].Best
}
