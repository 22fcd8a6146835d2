package microevo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"microevo/internal/config"
	"microevo/internal/evo"
	"microevo/internal/logging"
	"microevo/internal/platform"
	"microevo/internal/stats"
	"microevo/internal/storage"
)

const defaultExportsDir = "exports"

// Options select the client's configuration. ConfigPath is a YAML or INI run
// configuration loaded on top of the defaults and MICROEVO_* environment
// variables; non-empty StoreKind, DBPath and LogLevel override it.
type Options struct {
	ConfigPath string
	StoreKind  string
	DBPath     string
	LogLevel   string
	ExportsDir string

	// Logger replaces the logger built from LogLevel. Without either Logger
	// or LogOutput the client does not log.
	Logger    *slog.Logger
	LogOutput io.Writer
}

// Client runs headless training sessions and reads back their history.
type Client struct {
	cfg        *config.RunConfig
	store      storage.Store
	exportsDir string
	logger     *slog.Logger
}

// RunRequest overrides the client's run configuration. Zero values keep the
// configured setting; Seed is a pointer so that seed 0 can be selected.
type RunRequest struct {
	Layers                   []int
	Population               int
	TrainTime                time.Duration
	EarlyMutationGenerations int
	Generations              int
	Tick                     time.Duration
	Seed                     *int64
	Workers                  int

	// OnGeneration is called after every finished training window.
	OnGeneration func(GenerationStats)
}

type GenerationStats struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	Best           float64 `json:"best"`
	Mean           float64 `json:"mean"`
	Min            float64 `json:"min"`
	StdDev         float64 `json:"std_dev"`
}

type RunSummary struct {
	RunID            string            `json:"run_id"`
	Seed             int64             `json:"seed"`
	Generations      []GenerationStats `json:"generations"`
	FinalBestFitness float64           `json:"final_best_fitness"`
	Improvement      float64           `json:"improvement"`
	Ticks            int               `json:"ticks"`
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string  `json:"run_id"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	Seed             int64   `json:"seed"`
	Layers           []int   `json:"layers"`
	Population       int     `json:"population"`
	TrainTime        string  `json:"train_time"`
	Generations      int     `json:"generations"`
	FinalBestFitness float64 `json:"final_best_fitness"`
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string `json:"run_id"`
	Directory string `json:"directory"`
}

func New(opts Options) (*Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StoreKind != "" {
		cfg.Store = opts.StoreKind
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	cfg.Normalize()
	if err := cfg.ValidateBackend(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil && opts.LogOutput != nil {
		logger = logging.NewLogger(cfg.LogLevel, opts.LogOutput)
	}

	store, err := storage.NewStore(cfg.Store, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		store:      store,
		exportsDir: exportsDir,
		logger:     logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run trains on the headless seek arena and stores the run's history.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := c.cfg.Clone()
	applyRunRequest(cfg, req)

	runnerCfg := platform.RunnerConfig{
		Run:    cfg,
		Store:  c.store,
		Logger: c.logger,
	}
	if req.OnGeneration != nil {
		runnerCfg.OnGeneration = func(s evo.GenerationSummary) { req.OnGeneration(toGenerationStats(s)) }
	}
	runner, err := platform.NewRunner(runnerCfg)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := runner.Run(ctx)
	summary := RunSummary{
		RunID:            result.RunID,
		Seed:             cfg.Seed,
		FinalBestFitness: result.BestFinalFitness,
		Improvement:      result.Improvement,
		Ticks:            result.Ticks,
		Generations:      make([]GenerationStats, len(result.Generations)),
	}
	for i, s := range result.Generations {
		summary.Generations[i] = toGenerationStats(s)
	}
	return summary, err
}

func applyRunRequest(cfg *config.RunConfig, req RunRequest) {
	if len(req.Layers) > 0 {
		cfg.Layers = req.Layers
	}
	if req.Population > 0 {
		cfg.Population = req.Population
	}
	if req.TrainTime > 0 {
		cfg.TrainTime = req.TrainTime
	}
	if req.EarlyMutationGenerations != 0 {
		cfg.EarlyMutationGenerations = req.EarlyMutationGenerations
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}
	if req.Tick > 0 {
		cfg.Tick = req.Tick
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	cfg.Normalize()
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:            run.ID,
			CreatedAtUTC:     run.CreatedAtUTC,
			Seed:             run.Seed,
			Layers:           run.Layers,
			Population:       run.PopulationSize,
			TrainTime:        (time.Duration(run.TrainTimeMS) * time.Millisecond).String(),
			Generations:      run.Generations,
			FinalBestFitness: run.FinalBestFitness,
		})
	}
	return out, nil
}

// History returns the per-generation statistics of one run. Limit keeps the
// most recent generations.
func (c *Client) History(ctx context.Context, req HistoryRequest) ([]GenerationStats, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	records, ok, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[len(records)-req.Limit:]
	}

	out := make([]GenerationStats, len(records))
	for i, r := range records {
		out[i] = GenerationStats{
			Generation:     r.Generation,
			PopulationSize: r.PopulationSize,
			Best:           r.BestFitness,
			Mean:           r.MeanFitness,
			Min:            r.MinFitness,
			StdDev:         r.StdFitness,
		}
	}
	return out, nil
}

// Export writes a stored run and its history as JSON and CSV files.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("run not found: %s", runID)
	}
	records, _, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, stats.RunArtifacts{Run: run, Generations: records})
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return "", errors.New("run id or latest is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return "", err
	}
	if runID != "" {
		return runID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func toGenerationStats(s evo.GenerationSummary) GenerationStats {
	return GenerationStats{
		Generation:     s.Generation,
		PopulationSize: s.PopulationSize,
		Best:           s.Best,
		Mean:           s.Mean,
		Min:            s.Min,
		StdDev:         s.StdDev,
	}
}
