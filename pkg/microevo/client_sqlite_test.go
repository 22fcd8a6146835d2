//go:build sqlite

package microevo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestClientUsesSQLiteStoreFromConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	path := writeConfig(t, "run.yaml", "store: sqlite\ndb_path: "+dbPath+"\n")

	client, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	summary, err := client.Run(context.Background(), smallRun())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite database at %s: %v", dbPath, err)
	}

	reopened, err := New(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("reopen client: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("run not persisted in sqlite: %+v", runs)
	}
}
