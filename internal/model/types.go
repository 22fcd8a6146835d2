package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one training run. Network weights are never part of it.
type RunRecord struct {
	VersionedRecord
	ID                       string  `json:"id"`
	CreatedAtUTC             string  `json:"created_at_utc"`
	Seed                     int64   `json:"seed"`
	Layers                   []int   `json:"layers"`
	PopulationSize           int     `json:"population_size"`
	TrainTimeMS              int64   `json:"train_time_ms"`
	TickMS                   int64   `json:"tick_ms"`
	EarlyMutationGenerations int     `json:"early_mutation_generations"`
	Generations              int     `json:"generations"`
	FinalBestFitness         float64 `json:"final_best_fitness"`
}

// GenerationRecord holds the fitness statistics of one finished training window.
type GenerationRecord struct {
	VersionedRecord
	RunID          string  `json:"run_id"`
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	StdFitness     float64 `json:"std_fitness"`
}
