package domain

import "time"

// Hold records one subject held during a run and why.
type Hold struct {
	SubjectID string `json:"subject_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// Report summarizes one run cycle. It is the value returned by Dish.Run and
// the payload of the RunEndEvent.
type Report struct {
	RunID      string    `json:"run_id"`
	Experiment string    `json:"experiment"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Fetched counts subjects seen this run after merging the intake feed,
	// including already complete ones.
	Fetched int `json:"fetched"`

	// Included and Excluded partition the active subjects by the top-level
	// filters. Complete subjects and subjects whose screening errored count
	// in neither.
	Included int `json:"included"`
	Excluded int `json:"excluded"`

	Assigned  int `json:"assigned"`
	Advanced  int `json:"advanced"`
	Completed int `json:"completed"`
	Held      int `json:"held"`

	// Groups and Stages are occupancy counts over the included subjects
	// after the run.
	Groups map[string]int `json:"groups"`
	Stages map[string]int `json:"stages"`

	Holds []Hold `json:"holds,omitempty"`
}

// Duration returns the wall time the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
