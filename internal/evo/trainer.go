package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"microevo/internal/logging"
	"microevo/internal/nn"
	"microevo/internal/stats"
)

const (
	DefaultPopulationSize           = 4
	DefaultTrainTime                = 25 * time.Second
	DefaultEarlyMutationGenerations = 5
)

var (
	ErrAgentIndex         = errors.New("agent index out of range")
	ErrNotInitialized     = errors.New("population is not initialized")
	ErrAlreadyInitialized = errors.New("population is already initialized")
)

type TrainerConfig struct {
	LayerSizes     []int
	PopulationSize int
	TrainTime      time.Duration
	// EarlyMutationGenerations also mutates the kept half while the generation
	// counter is below it. Zero uses the default; negative disables it.
	EarlyMutationGenerations int
	Seed                     int64
	// Rand overrides Seed when set.
	Rand    *rand.Rand
	Workers int
	Logger  *slog.Logger
}

// GenerationSummary is the fitness distribution of a finished training window.
type GenerationSummary struct {
	Generation     int `json:"generation"`
	PopulationSize int `json:"population_size"`
	stats.Summary
}

// Trainer owns a population of networks and regenerates it by truncation
// selection every training window. It is not safe for concurrent use; the
// caller's tick loop serializes access.
type Trainer struct {
	cfg    TrainerConfig
	rng    *rand.Rand
	logger *slog.Logger

	population []*nn.Network
	generation int
	training   bool
	remaining  time.Duration
	history    []GenerationSummary
}

func NewTrainer(cfg TrainerConfig) (*Trainer, error) {
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.TrainTime < 0 {
		return nil, fmt.Errorf("train time must be >= 0")
	}
	if cfg.TrainTime == 0 {
		cfg.TrainTime = DefaultTrainTime
	}
	if cfg.EarlyMutationGenerations == 0 {
		cfg.EarlyMutationGenerations = DefaultEarlyMutationGenerations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if !nn.ValidLayers(cfg.LayerSizes) {
		cfg.LayerSizes = nn.DefaultLayers()
	}
	cfg.LayerSizes = slices.Clone(cfg.LayerSizes)
	cfg.PopulationSize = evenPopulation(cfg.PopulationSize)

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	return &Trainer{
		cfg:       cfg,
		rng:       rng,
		logger:    logging.OrDiscard(cfg.Logger),
		remaining: cfg.TrainTime,
	}, nil
}

func evenPopulation(size int) int {
	if size%2 != 0 {
		return size + 1
	}
	return size
}

// InitializePopulation seeds generation 0: every network is freshly drawn and
// then mutated once. A population can only be seeded once; later generations
// come from AdvanceGeneration.
func (t *Trainer) InitializePopulation() error {
	if t.population != nil {
		return ErrAlreadyInitialized
	}
	t.seed()
	return nil
}

func (t *Trainer) seed() {
	t.cfg.PopulationSize = evenPopulation(t.cfg.PopulationSize)

	t.population = make([]*nn.Network, t.cfg.PopulationSize)
	for i := range t.population {
		network := nn.New(t.rng, t.cfg.LayerSizes...)
		network.Mutate(t.rng)
		network.SetFitness(0)
		t.population[i] = network
	}
	t.generation = 0
	t.history = nil

	t.logger.Debug("population seeded", "population", len(t.population), "layers", t.cfg.LayerSizes)
}

// AdvanceGeneration ranks the population worst first and, for every pairing
// i / i+half, overwrites the worse network with a mutated clone of its partner
// and refreshes the partner as a fitness-zeroed clone of itself.
func (t *Trainer) AdvanceGeneration() error {
	if t.population == nil {
		return ErrNotInitialized
	}
	t.advance()
	return nil
}

func (t *Trainer) advance() {
	summary, err := t.summarize()
	if err == nil {
		t.history = append(t.history, summary)
	}

	nn.SortByFitness(t.population)

	half := len(t.population) / 2
	for i := 0; i < half; i++ {
		partner := i + half

		offspring := t.population[partner].Clone()
		offspring.Mutate(t.rng)
		t.population[i] = offspring

		elite := t.population[partner].Clone()
		if t.generation < t.cfg.EarlyMutationGenerations {
			elite.Mutate(t.rng)
		}
		t.population[partner] = elite

		t.population[i].SetFitness(0)
		t.population[partner].SetFitness(0)
	}

	t.generation++
	t.remaining = t.cfg.TrainTime

	t.logger.Info("generation complete",
		"generation", summary.Generation,
		"best", summary.Best,
		"mean", summary.Mean,
		"min", summary.Min,
	)
}

func (t *Trainer) summarize() (GenerationSummary, error) {
	fitness := make([]float64, len(t.population))
	for i, network := range t.population {
		fitness[i] = network.Fitness()
	}
	summary, err := stats.Summarize(fitness)
	if err != nil {
		return GenerationSummary{}, err
	}
	return GenerationSummary{
		Generation:     t.generation,
		PopulationSize: len(t.population),
		Summary:        summary,
	}, nil
}

// Tick advances the training window by elapsed. It reports true when a
// rollover happened during this call, in which case the caller must rebind its
// agents to the trainer's indexes. The first tick always seeds the population.
func (t *Trainer) Tick(elapsed time.Duration) bool {
	t.remaining -= elapsed
	if t.training && t.remaining <= 0 {
		t.training = false
	}
	if t.training {
		return false
	}

	if t.population == nil {
		t.seed()
		t.generation = 1
	} else {
		t.advance()
	}
	t.remaining = t.cfg.TrainTime
	t.training = true
	return true
}

// Outputs runs a forward pass for one agent.
func (t *Trainer) Outputs(agent int, inputs []float64) ([]float64, error) {
	network, err := t.network(agent)
	if err != nil {
		return nil, err
	}
	return network.FeedForward(inputs)
}

// OutputsAll runs a forward pass for every agent, inputs[i] feeding agent i.
// Distinct agents are evaluated concurrently by up to Workers goroutines.
func (t *Trainer) OutputsAll(ctx context.Context, inputs [][]float64) ([][]float64, error) {
	if t.population == nil {
		return nil, ErrNotInitialized
	}
	if len(inputs) != len(t.population) {
		return nil, fmt.Errorf("got inputs for %d agents, population has %d", len(inputs), len(t.population))
	}

	outputs := make([][]float64, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for i := range inputs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := t.population[i].FeedForward(inputs[i])
			if err != nil {
				return fmt.Errorf("agent %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (t *Trainer) AddFitness(agent int, delta float64) error {
	network, err := t.network(agent)
	if err != nil {
		return err
	}
	network.AddFitness(delta)
	return nil
}

func (t *Trainer) SetFitness(agent int, value float64) error {
	network, err := t.network(agent)
	if err != nil {
		return err
	}
	network.SetFitness(value)
	return nil
}

func (t *Trainer) Fitness(agent int) (float64, error) {
	network, err := t.network(agent)
	if err != nil {
		return 0, err
	}
	return network.Fitness(), nil
}

// Best returns the index and fitness of the fittest agent in the current window.
func (t *Trainer) Best() (int, float64, error) {
	if t.population == nil {
		return 0, 0, ErrNotInitialized
	}
	best := 0
	for i, network := range t.population {
		if nn.Compare(network, t.population[best]) > 0 {
			best = i
		}
	}
	return best, t.population[best].Fitness(), nil
}

func (t *Trainer) network(agent int) (*nn.Network, error) {
	if t.population == nil {
		return nil, ErrNotInitialized
	}
	if agent < 0 || agent >= len(t.population) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrAgentIndex, agent, len(t.population))
	}
	return t.population[agent], nil
}

func (t *Trainer) Generation() int {
	return t.generation
}

func (t *Trainer) PopulationSize() int {
	return t.cfg.PopulationSize
}

func (t *Trainer) Layers() []int {
	return slices.Clone(t.cfg.LayerSizes)
}

func (t *Trainer) TrainTime() time.Duration {
	return t.cfg.TrainTime
}

// Remaining is the time left in the current training window.
func (t *Trainer) Remaining() time.Duration {
	if t.remaining < 0 {
		return 0
	}
	return t.remaining
}

func (t *Trainer) Training() bool {
	return t.training
}

// History returns the summaries of every finished window, oldest first.
func (t *Trainer) History() []GenerationSummary {
	return slices.Clone(t.history)
}
