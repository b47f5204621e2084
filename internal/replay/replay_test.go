package replay

import (
	"context"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_ShortEpisode replays the short_episode fixture through a real
// environment and compares each step's trace against the expected outcomes.
// This is the primary regression test for the reset/step/encode path.
func TestFixture_ShortEpisode(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "short_episode.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	outcomes, err := Run(context.Background(), f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, m := range Compare(f, outcomes) {
		t.Error(m)
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	if _, err := LoadFixture("testdata/nonexistent.json"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// #endregion fixture-tests

// #region scripted-engine-tests

func TestScriptedEngineTapeExhausted(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "short_episode.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	cfg := f.Config
	cfg.ApplyDefaults()

	load, err := f.Load.ToRecord(cfg)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	eng := NewScriptedEngine(load, nil)

	rec := load.Clone()
	if err := eng.LoadAssignment(context.Background(), "", 0, 0, 0, rec); err != nil {
		t.Fatalf("LoadAssignment: %v", err)
	}
	if err := eng.Apply(context.Background(), rec, 0); err == nil {
		t.Fatal("expected tape exhausted error")
	}
}

func TestFixtureStateValidation(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "short_episode.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	cfg := f.Config
	cfg.ApplyDefaults()

	bad := f.Load
	bad.Nodes = []int32{1, 2, 3, 4, 5, 6} // exceeds max_num_nodes
	bad.Starter = bad.Nodes
	if _, err := bad.ToRecord(cfg); err == nil {
		t.Fatal("expected capacity error")
	}

	short := f.Load
	short.PermittedActions = []int32{1}
	if _, err := short.ToRecord(cfg); err == nil {
		t.Fatal("expected mask length error")
	}
}

// #endregion scripted-engine-tests
