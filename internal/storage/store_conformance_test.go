package storage

import (
	"context"
	"slices"
	"testing"

	"microevo/internal/model"
)

func sampleRun(id, createdAt string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAtUTC:    createdAt,
		Seed:            7,
		Layers:          []int{1, 10, 10, 1},
		PopulationSize:  4,
		TrainTimeMS:     25000,
		TickMS:          20,
		Generations:     3,
	}
}

func sampleGenerations(runID string) []model.GenerationRecord {
	return []model.GenerationRecord{
		{VersionedRecord: CurrentVersion(), RunID: runID, Generation: 1, PopulationSize: 4, BestFitness: 0.8, MeanFitness: 0.5, MinFitness: 0.1},
		{VersionedRecord: CurrentVersion(), RunID: runID, Generation: 2, PopulationSize: 4, BestFitness: 0.9, MeanFitness: 0.6, MinFitness: 0.2},
	}
}

// exerciseStore runs the behaviour every backend must share against an
// initialized store.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	older := sampleRun("run-a", "2026-01-01T00:00:00Z")
	newer := sampleRun("run-b", "2026-02-01T00:00:00Z")
	for _, run := range []model.RunRecord{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, older.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", older.ID)
	}
	if loaded.ID != older.ID || !slices.Equal(loaded.Layers, older.Layers) || loaded.TrainTimeMS != older.TrainTimeMS {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	older.FinalBestFitness = 4.5
	if err := store.SaveRun(ctx, older); err != nil {
		t.Fatalf("update run: %v", err)
	}
	loaded, _, err = store.GetRun(ctx, older.ID)
	if err != nil || loaded.FinalBestFitness != 4.5 {
		t.Fatalf("expected updated run, got %+v err=%v", loaded, err)
	}

	gens := sampleGenerations(older.ID)
	if err := store.SaveGenerations(ctx, older.ID, gens); err != nil {
		t.Fatalf("save generations: %v", err)
	}
	loadedGens, ok, err := store.GetGenerations(ctx, older.ID)
	if err != nil {
		t.Fatalf("get generations: %v", err)
	}
	if !ok || len(loadedGens) != 2 || loadedGens[1].BestFitness != 0.9 {
		t.Fatalf("unexpected generations: ok=%v %+v", ok, loadedGens)
	}
	if _, ok, err := store.GetGenerations(ctx, newer.ID); err != nil || ok {
		t.Fatalf("expected no generations for %s: ok=%v err=%v", newer.ID, ok, err)
	}

	if err := store.DeleteRun(ctx, older.ID); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, older.ID); ok {
		t.Fatal("expected run to be deleted")
	}
	if _, ok, _ := store.GetGenerations(ctx, older.ID); ok {
		t.Fatal("expected generations to be deleted with the run")
	}
}
