package nn

import "math/rand"

// MutationBand is the perturbation applied to a single weight.
type MutationBand int

const (
	BandNone MutationBand = iota
	BandFlipSign
	BandReinitialize
	BandScaleUp
	BandScaleDown
)

// Each band covers BandWidth percent of the [0, 100) draw, starting at 0.
const BandWidth = 2.0

func (b MutationBand) String() string {
	switch b {
	case BandFlipSign:
		return "flip_sign"
	case BandReinitialize:
		return "reinitialize"
	case BandScaleUp:
		return "scale_up"
	case BandScaleDown:
		return "scale_down"
	default:
		return "none"
	}
}

// ClassifyMutation maps a percentage in [0, 100) to its band.
func ClassifyMutation(percent float64) MutationBand {
	switch {
	case percent < 0:
		return BandNone
	case percent < BandWidth:
		return BandFlipSign
	case percent < 2*BandWidth:
		return BandReinitialize
	case percent < 3*BandWidth:
		return BandScaleUp
	case percent < 4*BandWidth:
		return BandScaleDown
	default:
		return BandNone
	}
}

// MutationCounts tallies how many weights landed in each band during one Mutate call.
type MutationCounts map[MutationBand]int

// Mutate perturbs every weight independently; roughly 8% of weights change.
func (n *Network) Mutate(rng *rand.Rand) {
	n.mutate(rng)
}

func (n *Network) mutate(rng *rand.Rand) MutationCounts {
	counts := make(MutationCounts, 5)
	for i := range n.weights {
		for j := range n.weights[i] {
			for k, weight := range n.weights[i][j] {
				band := ClassifyMutation(rng.Float64() * 100)
				counts[band]++
				n.weights[i][j][k] = applyMutation(rng, band, weight)
			}
		}
	}
	return counts
}

func applyMutation(rng *rand.Rand, band MutationBand, weight float64) float64 {
	switch band {
	case BandFlipSign:
		return -weight
	case BandReinitialize:
		return randomWeight(rng)
	case BandScaleUp:
		return weight * (1 + rng.Float64())
	case BandScaleDown:
		return weight * rng.Float64()
	default:
		return weight
	}
}
