package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementJobRuns is the measurement job runs are written to.
const MeasurementJobRuns = "job_runs"

// JobRun is the metric summary of one job run.
type JobRun struct {
	Job      string // job slug, tag
	Site     string // site ID, tag
	Duration time.Duration
	// Counts holds the number of entries per level ("info", "success", ...).
	Counts    map[string]int
	Completed time.Time
}

// jobRunPoint builds the job_runs point for run.
func jobRunPoint(run JobRun) *write.Point {
	tags := map[string]string{"job": run.Job}
	if run.Site != "" {
		tags["site"] = run.Site
	}

	total := 0
	fields := map[string]any{
		"duration_ms": float64(run.Duration) / float64(time.Millisecond),
	}
	for level, n := range run.Counts {
		fields[level] = n
		total += n
	}
	fields["entries"] = total

	at := run.Completed
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(MeasurementJobRuns, tags, fields, at)
}

// WriteJobRun records a job run. The write is non-blocking.
//
// Example:
//
//	client.WriteJobRun(influxdb.JobRun{
//	    Job:      "device-lookup-job",
//	    Duration: 12 * time.Millisecond,
//	    Counts:   map[string]int{"info": 3, "warning": 1},
//	})
func (c *Client) WriteJobRun(run JobRun) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(jobRunPoint(run))
}

// WritePoint writes a custom point timestamped now.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
