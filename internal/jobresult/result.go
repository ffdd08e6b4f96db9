package jobresult

import (
	"time"

	"github.com/nerrad567/nsot-jobs/internal/job"
)

// Status is the lifecycle state of a job result.
type Status string

// StatusCompleted is recorded for every run that executed. Jobs report
// failures through their entries, never through the result status.
const StatusCompleted Status = "completed"

// Result is the stored record of one job run.
type Result struct {
	ID string `json:"id"`

	// JobName is the slug of the job that ran, e.g. "device-lookup-job".
	JobName string `json:"job_name"`

	// Input is the key/value data as submitted.
	Input map[string]any `json:"input"`

	Status  Status      `json:"status"`
	Entries []job.Entry `json:"entries"`

	// Counts is derived from Entries.
	Counts map[job.Level]int `json:"counts"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// New builds a completed Result. The ID is assigned when the result is stored.
//
// Parameters:
//   - jobName: Slug of the job that ran
//   - input: Submitted data; copied
//   - entries: The run's entries in order
//   - started, completed: Run boundaries
//
// Returns:
//   - *Result: with counts filled in
func New(jobName string, input map[string]any, entries []job.Entry, started, completed time.Time) *Result {
	in := make(map[string]any, len(input))
	for k, v := range input {
		in[k] = v
	}
	if entries == nil {
		entries = []job.Entry{}
	}

	return &Result{
		JobName:     jobName,
		Input:       in,
		Status:      StatusCompleted,
		Entries:     entries,
		Counts:      job.Count(entries),
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
	}
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// HasErrors reports whether the run logged an error entry.
func (r *Result) HasErrors() bool {
	return r.Counts[job.LevelError] > 0
}
