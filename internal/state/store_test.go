package state

import (
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginEpisodeAndCurrent(t *testing.T) {
	s := tempStore(t)

	ep, err := s.BeginEpisode(1, 2, 42)
	if err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}
	if ep.EpisodeID == "" {
		t.Fatal("expected non-empty episode ID")
	}
	if ep.Assignment != 1 || ep.Code != 2 || ep.Seed != 42 {
		t.Fatalf("unexpected episode row: %+v", ep)
	}

	cur, err := s.CurrentEpisode()
	if err != nil {
		t.Fatalf("CurrentEpisode: %v", err)
	}
	if cur.EpisodeID != ep.EpisodeID {
		t.Fatalf("expected %s, got %s", ep.EpisodeID, cur.EpisodeID)
	}
	if cur.Solved || !cur.FinishedAt.IsZero() {
		t.Fatalf("fresh episode should be unfinished: %+v", cur)
	}
}

func TestActivePointerFollowsNewest(t *testing.T) {
	s := tempStore(t)

	s.BeginEpisode(0, 0, 1)
	ep2, err := s.BeginEpisode(0, 1, 1)
	if err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}

	cur, err := s.CurrentEpisode()
	if err != nil {
		t.Fatalf("CurrentEpisode: %v", err)
	}
	if cur.EpisodeID != ep2.EpisodeID {
		t.Fatalf("active pointer not updated: %s", cur.EpisodeID)
	}
}

func TestLogStepAndReadBack(t *testing.T) {
	s := tempStore(t)
	ep, _ := s.BeginEpisode(0, 0, 7)

	nodes := []int32{4, 2, -1, -1, -1}
	mask := []int32{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if err := s.LogStep(ep.EpisodeID, 1, 3, 0, false, nodes, mask); err != nil {
		t.Fatalf("LogStep: %v", err)
	}
	if err := s.LogStep(ep.EpisodeID, 2, 1, 1, true, nodes, mask); err != nil {
		t.Fatalf("LogStep: %v", err)
	}

	steps, err := s.Steps(ep.EpisodeID)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Step != 1 || steps[0].Action != 3 || steps[0].Done {
		t.Fatalf("step 1: %+v", steps[0])
	}
	if steps[1].Reward != 1 || !steps[1].Done {
		t.Fatalf("step 2: %+v", steps[1])
	}
	for i, v := range nodes {
		if steps[0].Nodes[i] != v {
			t.Fatalf("nodes blob mismatch at %d: %d != %d", i, steps[0].Nodes[i], v)
		}
	}
	if len(steps[0].Mask) != len(mask) {
		t.Fatalf("mask length: %d != %d", len(steps[0].Mask), len(mask))
	}
}

func TestFinishEpisode(t *testing.T) {
	s := tempStore(t)
	ep, _ := s.BeginEpisode(0, 0, 7)

	if err := s.FinishEpisode(ep.EpisodeID, true); err != nil {
		t.Fatalf("FinishEpisode: %v", err)
	}
	got, err := s.GetEpisode(ep.EpisodeID)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if !got.Solved || got.FinishedAt.IsZero() {
		t.Fatalf("episode not marked finished: %+v", got)
	}
}

func TestFinishEpisodeNotFound(t *testing.T) {
	s := tempStore(t)
	if err := s.FinishEpisode("nonexistent-id", false); err == nil {
		t.Fatal("expected error for nonexistent episode")
	}
}

func TestListEpisodes(t *testing.T) {
	s := tempStore(t)
	s.BeginEpisode(0, 0, 1)
	ep2, _ := s.BeginEpisode(1, 0, 1)
	s.LogStep(ep2.EpisodeID, 1, 0, 0, false, nil, nil)

	episodes, err := s.ListEpisodes(10)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	for _, e := range episodes {
		if e.EpisodeID == ep2.EpisodeID && e.NumSteps != 1 {
			t.Fatalf("expected 1 step on %s, got %d", e.EpisodeID, e.NumSteps)
		}
	}
}

func TestIntsRoundTrip(t *testing.T) {
	original := []int32{0, 1, -1, 2147483647, -2147483648, 42}
	decoded := decodeInts(encodeInts(original))
	if len(decoded) != len(original) {
		t.Fatalf("length mismatch: %d != %d", len(decoded), len(original))
	}
	for i := range original {
		if original[i] != decoded[i] {
			t.Fatalf("mismatch at %d: %d != %d", i, original[i], decoded[i])
		}
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestCurrentEpisodeEmpty(t *testing.T) {
	s := tempStore(t)
	if _, err := s.CurrentEpisode(); err == nil {
		t.Fatal("expected error when no episode exists")
	}
}
