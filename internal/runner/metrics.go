package runner

import (
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/influxdb"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
)

// JobRunWriter writes job run points. *influxdb.Client satisfies it.
type JobRunWriter interface {
	WriteJobRun(run influxdb.JobRun)
}

// InfluxMetrics records runs as influxdb job_runs points tagged with a site.
type InfluxMetrics struct {
	writer JobRunWriter
	site   string
}

// NewInfluxMetrics creates a Metrics that writes to w.
func NewInfluxMetrics(w JobRunWriter, site string) *InfluxMetrics {
	return &InfluxMetrics{writer: w, site: site}
}

// RecordRun writes one point for result.
func (m *InfluxMetrics) RecordRun(result *jobresult.Result) {
	counts := make(map[string]int, len(result.Counts))
	for level, n := range result.Counts {
		counts[string(level)] = n
	}

	m.writer.WriteJobRun(influxdb.JobRun{
		Job:       result.JobName,
		Site:      m.site,
		Duration:  result.Duration(),
		Counts:    counts,
		Completed: result.CompletedAt,
	})
}
