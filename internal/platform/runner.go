package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"microevo/internal/config"
	"microevo/internal/evo"
	"microevo/internal/logging"
	"microevo/internal/model"
	"microevo/internal/scape"
	"microevo/internal/stats"
	"microevo/internal/storage"
)

// RunnerConfig wires a headless training run.
type RunnerConfig struct {
	Run    *config.RunConfig
	Store  storage.Store
	Logger *slog.Logger

	// Environment defaults to a seek arena built from Run.Arena.
	Environment scape.Environment

	// OnGeneration is called after every finished training window.
	OnGeneration func(evo.GenerationSummary)

	Now   func() time.Time
	NewID func() string
}

type RunResult struct {
	RunID            string                  `json:"run_id"`
	Generations      []evo.GenerationSummary `json:"generations"`
	BestFinalFitness float64                 `json:"best_final_fitness"`

	// Improvement is the best fitness gained from the first to the last window.
	Improvement float64 `json:"improvement"`
	Ticks       int     `json:"ticks"`
	Completed   bool    `json:"completed"`
}

// Runner drives a trainer against an environment with a fixed tick until the
// configured number of generations has finished.
type Runner struct {
	cfg     *config.RunConfig
	store   storage.Store
	logger  *slog.Logger
	env     scape.Environment
	onGen   func(evo.GenerationSummary)
	now     func() time.Time
	newID   func() string
	trainer *evo.Trainer
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Run == nil {
		return nil, fmt.Errorf("run config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	run := *cfg.Run
	run.Normalize()
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	env := cfg.Environment
	if env == nil {
		arena, err := scape.NewSeekArena(scape.SeekConfig{
			Width:        run.Arena.Width,
			Height:       run.Arena.Height,
			Speed:        run.Arena.Speed,
			TurnRate:     run.Arena.TurnRate,
			FoodInterval: run.Arena.FoodInterval,
		}, rand.New(rand.NewSource(run.Seed+1)))
		if err != nil {
			return nil, fmt.Errorf("build arena: %w", err)
		}
		env = arena
	}
	if run.Layers[0] != env.InputSize() {
		return nil, fmt.Errorf("scape %s senses %d inputs, topology %v expects %d",
			env.Name(), env.InputSize(), run.Layers, run.Layers[0])
	}
	if out := run.Layers[len(run.Layers)-1]; out < env.OutputSize() {
		return nil, fmt.Errorf("scape %s needs %d outputs, topology %v has %d",
			env.Name(), env.OutputSize(), run.Layers, out)
	}

	logger := logging.OrDiscard(cfg.Logger)
	trainer, err := evo.NewTrainer(evo.TrainerConfig{
		LayerSizes:               run.Layers,
		PopulationSize:           run.Population,
		TrainTime:                run.TrainTime,
		EarlyMutationGenerations: run.EarlyMutationGenerations,
		Seed:                     run.Seed,
		Workers:                  run.Workers,
		Logger:                   logger,
	})
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Runner{
		cfg:     &run,
		store:   cfg.Store,
		logger:  logger,
		env:     env,
		onGen:   cfg.OnGeneration,
		now:     now,
		newID:   newID,
		trainer: trainer,
	}, nil
}

// Trainer exposes the underlying trainer for inspection.
func (r *Runner) Trainer() *evo.Trainer {
	return r.trainer
}

// Run trains until the configured number of generations has finished or ctx
// is cancelled. The run record and generation summaries reached so far are
// persisted in both cases.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	if err := r.store.Init(ctx); err != nil {
		return RunResult{}, fmt.Errorf("init store: %w", err)
	}

	result := RunResult{RunID: r.newID()}
	created := r.now().UTC()
	log := r.logger.With("run_id", result.RunID, "scape", r.env.Name())
	log.Info("run started",
		"layers", r.cfg.Layers,
		"population", r.trainer.PopulationSize(),
		"generations", r.cfg.Generations,
		"train_time", r.cfg.TrainTime,
	)

	runErr := r.loop(ctx, &result)

	result.Generations = r.trainer.History()
	if n := len(result.Generations); n > 0 {
		result.BestFinalFitness = result.Generations[n-1].Best
	}
	summaries := make([]stats.Summary, len(result.Generations))
	for i, g := range result.Generations {
		summaries[i] = g.Summary
	}
	result.Improvement = stats.Improvement(summaries)
	result.Completed = runErr == nil

	if err := r.persist(context.WithoutCancel(ctx), result, created); err != nil {
		return result, errors.Join(runErr, err)
	}
	if runErr != nil {
		log.Warn("run stopped", "generations", len(result.Generations), "error", runErr)
		return result, runErr
	}
	log.Info("run finished",
		"generations", len(result.Generations),
		"best", result.BestFinalFitness,
		"improvement", result.Improvement,
		"ticks", result.Ticks,
	)
	return result, nil
}

func (r *Runner) loop(ctx context.Context, result *RunResult) error {
	tick := r.cfg.Tick
	finished := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		if r.trainer.Tick(tick) {
			if r.onGen != nil {
				history := r.trainer.History()
				for _, summary := range history[finished:] {
					r.onGen(summary)
				}
			}
			finished = len(r.trainer.History())
			if finished >= r.cfg.Generations {
				return nil
			}
			r.env.Reset(r.trainer.PopulationSize())
		}

		if err := r.step(ctx, tick); err != nil {
			return err
		}
		result.Ticks++
	}
}

func (r *Runner) step(ctx context.Context, dt time.Duration) error {
	agents := r.trainer.PopulationSize()
	inputs := make([][]float64, agents)
	for i := range inputs {
		in, err := r.env.Sense(i)
		if err != nil {
			return fmt.Errorf("sense agent %d: %w", i, err)
		}
		inputs[i] = in
	}

	outputs, err := r.trainer.OutputsAll(ctx, inputs)
	if err != nil {
		return fmt.Errorf("evaluate population: %w", err)
	}
	for i, out := range outputs {
		delta, err := r.env.Step(i, out, dt)
		if err != nil {
			return fmt.Errorf("step agent %d: %w", i, err)
		}
		if err := r.trainer.AddFitness(i, delta); err != nil {
			return err
		}
	}
	r.env.Advance(dt)
	return nil
}

func (r *Runner) persist(ctx context.Context, result RunResult, created time.Time) error {
	version := storage.CurrentVersion()
	run := model.RunRecord{
		VersionedRecord:          version,
		ID:                       result.RunID,
		CreatedAtUTC:             created.Format(time.RFC3339),
		Seed:                     r.cfg.Seed,
		Layers:                   r.trainer.Layers(),
		PopulationSize:           r.trainer.PopulationSize(),
		TrainTimeMS:              r.cfg.TrainTime.Milliseconds(),
		TickMS:                   r.cfg.Tick.Milliseconds(),
		EarlyMutationGenerations: r.cfg.EarlyMutationGenerations,
		Generations:              len(result.Generations),
		FinalBestFitness:         result.BestFinalFitness,
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	records := make([]model.GenerationRecord, 0, len(result.Generations))
	for _, summary := range result.Generations {
		records = append(records, model.GenerationRecord{
			VersionedRecord: version,
			RunID:           result.RunID,
			Generation:      summary.Generation,
			PopulationSize:  summary.PopulationSize,
			BestFitness:     summary.Best,
			MeanFitness:     summary.Mean,
			MinFitness:      summary.Min,
			StdFitness:      summary.StdDev,
		})
	}
	if err := r.store.SaveGenerations(ctx, result.RunID, records); err != nil {
		return fmt.Errorf("save generations: %w", err)
	}
	return nil
}
