package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"microevo/internal/model"
)

// RunArtifacts is the on-disk export of one stored run.
type RunArtifacts struct {
	Run         model.RunRecord          `json:"run"`
	Generations []model.GenerationRecord `json:"generations"`
}

// BestByGeneration returns the best fitness of every exported generation in order.
func (a RunArtifacts) BestByGeneration() []float64 {
	best := make([]float64, len(a.Generations))
	for i, g := range a.Generations {
		best[i] = g.BestFitness
	}
	return best
}

// WriteRunArtifacts writes run.json, fitness_history.json and
// fitness_history.csv into outDir/<run id> and returns that directory.
func WriteRunArtifacts(outDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(outDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), map[string]any{
		"best_by_generation": artifacts.BestByGeneration(),
		"final_best_fitness": artifacts.Run.FinalBestFitness,
		"generations":        artifacts.Generations,
	}); err != nil {
		return "", err
	}
	if err := writeFitnessCSV(filepath.Join(runDir, "fitness_history.csv"), artifacts.Generations); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts loads an export written by WriteRunArtifacts.
func ReadRunArtifacts(runDir string) (RunArtifacts, error) {
	var artifacts RunArtifacts
	data, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if err != nil {
		return RunArtifacts{}, err
	}
	if err := json.Unmarshal(data, &artifacts.Run); err != nil {
		return RunArtifacts{}, fmt.Errorf("decode run.json: %w", err)
	}

	data, err = os.ReadFile(filepath.Join(runDir, "fitness_history.json"))
	if err != nil {
		return RunArtifacts{}, err
	}
	var history struct {
		Generations []model.GenerationRecord `json:"generations"`
	}
	if err := json.Unmarshal(data, &history); err != nil {
		return RunArtifacts{}, fmt.Errorf("decode fitness_history.json: %w", err)
	}
	artifacts.Generations = history.Generations
	return artifacts, nil
}

func writeFitnessCSV(path string, generations []model.GenerationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"generation", "population_size", "best", "mean", "min", "std"}); err != nil {
		return err
	}
	for _, g := range generations {
		if err := w.Write([]string{
			strconv.Itoa(g.Generation),
			strconv.Itoa(g.PopulationSize),
			formatFloat(g.BestFitness),
			formatFloat(g.MeanFitness),
			formatFloat(g.MinFitness),
			formatFloat(g.StdFitness),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
