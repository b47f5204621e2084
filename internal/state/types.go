package state

import "time"

// #region episode-row

// EpisodeRow is one episode in the episodes table.
type EpisodeRow struct {
	EpisodeID  string
	Assignment int32
	Code       int32
	Seed       int64
	StartedAt  time.Time
	FinishedAt time.Time // zero until the episode finishes
	Solved     bool
	NumSteps   int
}

// #endregion episode-row

// #region step-row

// StepRow is one entry in the step log: the action taken, the binary reward,
// and the padded node/mask vectors as observed after the step.
type StepRow struct {
	EpisodeID string
	Step      int
	Action    int32
	Reward    int32
	Done      bool
	Nodes     []int32
	Mask      []int32
	CreatedAt time.Time
}

// #endregion step-row
