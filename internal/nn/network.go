package nn

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// InitialWeightSpread bounds freshly drawn weights to [-InitialWeightSpread, InitialWeightSpread].
const InitialWeightSpread = 0.5

var ErrInvalidInput = errors.New("invalid input")

// DefaultLayers is substituted when a network is built from an absent or invalid topology.
func DefaultLayers() []int {
	return []int{1, 4, 4, 1}
}

// Network is a fixed-topology feedforward network with tanh activations and
// no bias terms. Fitness is an externally driven accumulator used for ranking.
type Network struct {
	layers  []int
	neurons [][]float64
	weights [][][]float64
	fitness float64
}

// New builds a network with weights drawn uniformly from [-0.5, 0.5].
// Format: (input, hidden..., output).
func New(rng *rand.Rand, layers ...int) *Network {
	if !ValidLayers(layers) {
		layers = DefaultLayers()
	}
	n := &Network{layers: slices.Clone(layers)}
	n.initNeurons()
	n.initWeights(func() float64 { return randomWeight(rng) })
	n.fitness = 0
	return n
}

// ValidLayers reports whether layers describes at least an input and an output layer
// with positive widths.
func ValidLayers(layers []int) bool {
	if len(layers) < 2 {
		return false
	}
	for _, width := range layers {
		if width <= 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy with identical weights and zero fitness.
func (n *Network) Clone() *Network {
	out := &Network{layers: slices.Clone(n.layers)}
	out.initNeurons()
	out.weights = make([][][]float64, len(n.weights))
	for i, layer := range n.weights {
		out.weights[i] = make([][]float64, len(layer))
		for j, incoming := range layer {
			out.weights[i][j] = slices.Clone(incoming)
		}
	}
	out.fitness = 0
	return out
}

func (n *Network) initNeurons() {
	n.neurons = make([][]float64, len(n.layers))
	for i, width := range n.layers {
		n.neurons[i] = make([]float64, width)
	}
}

func (n *Network) initWeights(draw func() float64) {
	n.weights = make([][][]float64, 0, len(n.layers)-1)
	for i := 1; i < len(n.layers); i++ {
		layer := make([][]float64, n.layers[i])
		for j := range layer {
			incoming := make([]float64, n.layers[i-1])
			for k := range incoming {
				incoming[k] = draw()
			}
			layer[j] = incoming
		}
		n.weights = append(n.weights, layer)
	}
}

// FeedForward evaluates the network. The returned slice is owned by the caller.
func (n *Network) FeedForward(inputs []float64) ([]float64, error) {
	if len(inputs) != n.layers[0] {
		return nil, fmt.Errorf("%w: got %d values, input layer has %d neurons", ErrInvalidInput, len(inputs), n.layers[0])
	}
	copy(n.neurons[0], inputs)

	for i := 1; i < len(n.layers); i++ {
		prev := n.neurons[i-1]
		for j := range n.neurons[i] {
			total := 0.0
			for k, w := range n.weights[i-1][j] {
				total += w * prev[k]
			}
			n.neurons[i][j] = math.Tanh(total)
		}
	}
	return slices.Clone(n.neurons[len(n.neurons)-1]), nil
}

// Layers returns a copy of the topology.
func (n *Network) Layers() []int {
	return slices.Clone(n.layers)
}

// InputSize is the width of the input layer.
func (n *Network) InputSize() int {
	return n.layers[0]
}

// OutputSize is the width of the output layer.
func (n *Network) OutputSize() int {
	return n.layers[len(n.layers)-1]
}

// Weights returns a deep copy of the weight tensor indexed [transition][neuron][previous neuron].
func (n *Network) Weights() [][][]float64 {
	out := make([][][]float64, len(n.weights))
	for i, layer := range n.weights {
		out[i] = make([][]float64, len(layer))
		for j, incoming := range layer {
			out[i][j] = slices.Clone(incoming)
		}
	}
	return out
}

func (n *Network) WeightCount() int {
	total := 0
	for i := 1; i < len(n.layers); i++ {
		total += n.layers[i] * n.layers[i-1]
	}
	return total
}

func (n *Network) Fitness() float64 {
	return n.fitness
}

func (n *Network) AddFitness(delta float64) {
	n.fitness += delta
}

func (n *Network) SetFitness(value float64) {
	n.fitness = value
}

// Compare orders networks by ascending fitness. Equal fitness compares as 0.
func Compare(a, b *Network) int {
	return cmp.Compare(a.fitness, b.fitness)
}

// SortByFitness sorts networks worst first. Networks with equal fitness keep
// their relative order.
func SortByFitness(networks []*Network) {
	slices.SortStableFunc(networks, Compare)
}

func randomWeight(rng *rand.Rand) float64 {
	return rng.Float64()*2*InitialWeightSpread - InitialWeightSpread
}
