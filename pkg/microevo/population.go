package microevo

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"microevo/internal/evo"
	"microevo/internal/nn"
)

var (
	ErrAgentIndex     = evo.ErrAgentIndex
	ErrNotInitialized = evo.ErrNotInitialized
	ErrInvalidInput   = nn.ErrInvalidInput
)

// Population is the environment-facing handle of one trainer. It is not safe
// for concurrent use; drive it from a single tick loop.
type Population struct {
	trainer *evo.Trainer
}

type Option func(*evo.TrainerConfig)

// WithTrainTime sets the length of one training window.
func WithTrainTime(d time.Duration) Option {
	return func(cfg *evo.TrainerConfig) { cfg.TrainTime = d }
}

func WithSeed(seed int64) Option {
	return func(cfg *evo.TrainerConfig) { cfg.Seed = seed }
}

// WithRand injects the random source used for every weight draw. It takes
// precedence over WithSeed.
func WithRand(rng *rand.Rand) Option {
	return func(cfg *evo.TrainerConfig) { cfg.Rand = rng }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *evo.TrainerConfig) { cfg.Logger = logger }
}

// WithEarlyMutationGenerations keeps mutating the kept half while the
// generation counter is below n. A negative n disables it.
func WithEarlyMutationGenerations(n int) Option {
	return func(cfg *evo.TrainerConfig) { cfg.EarlyMutationGenerations = n }
}

// WithWorkers bounds the goroutines GetAllOutputs evaluates agents with.
func WithWorkers(n int) Option {
	return func(cfg *evo.TrainerConfig) { cfg.Workers = n }
}

// CreatePopulation builds a trainer for networks shaped by layerSizes. Invalid
// topologies fall back to [1 4 4 1] and odd sizes are rounded up to even. The
// population is seeded by the first Tick.
func CreatePopulation(layerSizes []int, populationSize int, opts ...Option) (*Population, error) {
	cfg := evo.TrainerConfig{
		LayerSizes:     layerSizes,
		PopulationSize: populationSize,
		Seed:           time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	trainer, err := evo.NewTrainer(cfg)
	if err != nil {
		return nil, err
	}
	return &Population{trainer: trainer}, nil
}

// GetOutputs runs agent's network on inputs.
func (p *Population) GetOutputs(agent int, inputs []float64) ([]float64, error) {
	return p.trainer.Outputs(agent, inputs)
}

// GetAllOutputs runs every agent's network, inputs[i] feeding agent i, on up
// to the configured number of workers.
func (p *Population) GetAllOutputs(ctx context.Context, inputs [][]float64) ([][]float64, error) {
	return p.trainer.OutputsAll(ctx, inputs)
}

func (p *Population) ReportFitnessDelta(agent int, delta float64) error {
	return p.trainer.AddFitness(agent, delta)
}

func (p *Population) ReportFitnessAbsolute(agent int, value float64) error {
	return p.trainer.SetFitness(agent, value)
}

// Tick advances the training window. A true result means the population was
// seeded or regenerated and agents must be re-bound to their indexes.
func (p *Population) Tick(elapsed time.Duration) bool {
	return p.trainer.Tick(elapsed)
}

func (p *Population) CurrentGeneration() int {
	return p.trainer.Generation()
}

func (p *Population) PopulationSize() int {
	return p.trainer.PopulationSize()
}

func (p *Population) Fitness(agent int) (float64, error) {
	return p.trainer.Fitness(agent)
}

// Remaining is the time left in the current training window.
func (p *Population) Remaining() time.Duration {
	return p.trainer.Remaining()
}

// History lists the fitness statistics of every finished window.
func (p *Population) History() []GenerationStats {
	history := p.trainer.History()
	out := make([]GenerationStats, len(history))
	for i, s := range history {
		out[i] = toGenerationStats(s)
	}
	return out
}
