package job

import (
	"context"

	"github.com/nerrad567/nsot-jobs/internal/device"
)

// Meta describes a job to the host that lists and runs it.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// ReadOnly is false for jobs that may change data when asked to.
	ReadOnly bool `json:"read_only"`
}

// Slug returns the URL-safe identifier derived from the job name.
//
// Example: "Device Lookup Job" -> "device-lookup-job"
func (m Meta) Slug() string {
	return device.GenerateSlug(m.Name)
}

// Job is a single invocable unit of logic with declared inputs and
// log-style output.
//
// Execute never returns an error and never panics: every outcome, good or
// bad, is reported through the returned entries.
type Job interface {
	Meta() Meta
	Vars() []Var
	Execute(ctx context.Context, values Values) []Entry
}
