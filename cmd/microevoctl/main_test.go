package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"microevo/pkg/microevo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithStderr(t, args...)
	return out, err
}

func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.ini")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runJSON(t *testing.T, args ...string) microevo.RunSummary {
	t.Helper()
	out, err := execute(t, append([]string{"run", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary microevo.RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run summary: %v\n%s", err, out)
	}
	return summary
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "microevoctl version "+version) {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode version json: %v", err)
	}
	if payload["version"] != version {
		t.Fatalf("unexpected version payload: %v", payload)
	}
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "run", "--json",
		"--layers", "1,4,1",
		"--population", "3",
		"--train-time", "100ms",
		"--tick", "20ms",
		"--generations", "2",
		"--seed", "5",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary microevo.RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run summary: %v\n%s", err, out)
	}
	if summary.RunID == "" || len(summary.Generations) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Generations[0].PopulationSize != 4 {
		t.Fatalf("odd population should round up to 4, got %d", summary.Generations[0].PopulationSize)
	}
}

func TestRunCommandText(t *testing.T) {
	out, err := execute(t, "run", "--layers", "1,3,1", "--train-time", "60ms", "--tick", "20ms", "--generations", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"generation 1: best=", "generation 2: best=", "finished: generations=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandWithConfigFile(t *testing.T) {
	path := writeConfig(t, "layers = 1,2,1\npopulation = 2\ntrain_time = 40ms\ntick = 20ms\ngenerations = 1\n")
	summary := runJSON(t, "--config", path)
	if len(summary.Generations) != 1 || summary.Generations[0].PopulationSize != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// --config is a root flag and may precede the subcommand.
	out, err := execute(t, "--config", path, "run", "--json", "--generations", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run summary: %v", err)
	}
	if len(summary.Generations) != 2 {
		t.Fatalf("flag should override file generations, got %d", len(summary.Generations))
	}
}

func TestRunCommandSeedFlag(t *testing.T) {
	path := writeConfig(t, "layers = 1,2,1\ntrain_time = 40ms\ntick = 20ms\ngenerations = 1\nseed = 9\n")
	if got := runJSON(t, "--config", path).Seed; got != 9 {
		t.Fatalf("expected configured seed 9, got %d", got)
	}
	if got := runJSON(t, "--config", path, "--seed", "0").Seed; got != 0 {
		t.Fatalf("expected --seed 0 to win, got %d", got)
	}
}

func TestBackendFlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, "layers = 1,2,1\ntrain_time = 40ms\ntick = 20ms\ngenerations = 1\nstore = bogus\nlog_level = debug\n")
	if _, err := execute(t, "run", "--config", path); err == nil || !strings.Contains(err.Error(), "invalid store") {
		t.Fatalf("expected store from config to be used, got %v", err)
	}

	_, stderr, err := executeWithStderr(t, "run", "--json", "--config", path, "--store", "memory")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr, "population seeded") {
		t.Fatalf("expected debug logs from configured level:\n%s", stderr)
	}

	_, stderr, err = executeWithStderr(t, "run", "--json", "--config", path, "--store", "memory", "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stderr != "" {
		t.Fatalf("--log-level should override config:\n%s", stderr)
	}
}

func TestSQLiteConfigOverriddenByStoreFlag(t *testing.T) {
	path := writeConfig(t, "layers = 1,2,1\ntrain_time = 40ms\ntick = 20ms\ngenerations = 1\nstore = sqlite\ndb_path = "+filepath.Join(t.TempDir(), "runs.db")+"\n")
	if summary := runJSON(t, "--config", path, "--store", "memory"); len(summary.Generations) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad topology", []string{"run", "--layers", "2,4,1", "--generations", "1"}},
		{"bad config extension", []string{"run", "--config", "run.toml"}},
		{"bad store", []string{"run", "--store", "bogus"}},
		{"bad log level", []string{"run", "--log-level", "verbose", "--generations", "1"}},
		{"empty log level", []string{"runs", "--log-level", ""}},
		{"positional args", []string{"run", "extra"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := execute(t, tc.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunsCommandEmptyMemoryStore(t *testing.T) {
	out, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "No runs stored.") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = execute(t, "runs", "--json")
	if err != nil {
		t.Fatalf("runs --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestHistoryAndExportRequireRun(t *testing.T) {
	if _, err := execute(t, "history"); err == nil {
		t.Fatal("expected error without run id or --latest")
	}
	if _, err := execute(t, "history", "--latest"); err == nil {
		t.Fatal("expected error with no stored runs")
	}
	if _, err := execute(t, "export", "missing-run", "--out", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if _, err := execute(t, "history", "a", "b"); err == nil {
		t.Fatal("expected error for two run ids")
	}
}
