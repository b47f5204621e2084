// Command inspect lists logged episodes and step details from an episode
// database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/progsynth/ast-env/go-env/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ast_episodes.db")
	last := flag.Int("last", 20, "show N most recent episodes")
	episode := flag.String("episode", "", "show step detail for one episode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ast_episodes.db [--last N] [--episode id] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *episode != "" {
		err = runDetailMode(store, *episode, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	EpisodeID  string `json:"episode_id"`
	Assignment int32  `json:"assignment"`
	Code       int32  `json:"code"`
	Steps      int    `json:"steps"`
	Solved     bool   `json:"solved"`
	StartedAt  string `json:"started_at"`
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	episodes, err := store.ListEpisodes(last)
	if err != nil {
		return err
	}

	rows := make([]listRow, len(episodes))
	for i, e := range episodes {
		rows[i] = listRow{
			EpisodeID:  e.EpisodeID,
			Assignment: e.Assignment,
			Code:       e.Code,
			Steps:      e.NumSteps,
			Solved:     e.Solved,
			StartedAt:  e.StartedAt.Format(time.RFC3339),
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-36s  %-10s  %-5s  %-5s  %-6s  %s\n", "EPISODE", "ASSIGNMENT", "CODE", "STEPS", "SOLVED", "STARTED")
	for _, r := range rows {
		fmt.Printf("%-36s  %-10d  %-5d  %-5d  %-6v  %s\n",
			r.EpisodeID, r.Assignment, r.Code, r.Steps, r.Solved, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailRow struct {
	Step   int     `json:"step"`
	Action int32   `json:"action"`
	Reward int32   `json:"reward"`
	Done   bool    `json:"done"`
	Nodes  []int32 `json:"nodes"`
}

func runDetailMode(store *state.Store, episodeID string, jsonOut bool) error {
	ep, err := store.GetEpisode(episodeID)
	if err != nil {
		return err
	}
	steps, err := store.Steps(episodeID)
	if err != nil {
		return err
	}

	rows := make([]detailRow, len(steps))
	for i, s := range steps {
		rows[i] = detailRow{Step: s.Step, Action: s.Action, Reward: s.Reward, Done: s.Done, Nodes: s.Nodes}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Episode state.EpisodeRow `json:"episode"`
			Steps   []detailRow      `json:"steps"`
		}{ep, rows})
	}

	fmt.Printf("episode %s | assignment %d code %d | solved=%v\n", ep.EpisodeID, ep.Assignment, ep.Code, ep.Solved)
	fmt.Printf("%-5s  %-7s  %-7s  %-5s  %s\n", "STEP", "ACTION", "REWARD", "DONE", "NODES")
	for _, r := range rows {
		fmt.Printf("%-5d  %-7d  %-7d  %-5v  %v\n", r.Step, r.Action, r.Reward, r.Done, r.Nodes)
	}
	return nil
}

// #endregion detail-mode
