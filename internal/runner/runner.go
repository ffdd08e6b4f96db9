package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
)

// Logger defines the logging interface used by the Runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher receives every completed result, e.g. to forward it over MQTT
// or to WebSocket clients.
type Publisher interface {
	PublishResult(ctx context.Context, result *jobresult.Result) error
}

// Metrics records one measurement per completed run.
type Metrics interface {
	RecordRun(result *jobresult.Result)
}

// streamer is implemented by jobs that can hand each entry to a sink as it
// is produced. job.DeviceLookupJob implements it.
type streamer interface {
	SetSink(sink job.Sink)
}

// JobInfo describes a registered job and its variables.
type JobInfo struct {
	Slug string `json:"slug"`
	job.Meta
	Vars []job.VarInfo `json:"vars"`
}

// Runner holds the registered jobs and runs them on request.
//
// All public methods are thread-safe.
type Runner struct {
	mu        sync.RWMutex
	jobs      map[string]job.Job
	streaming map[string]bool // jobs whose entries reach the logger as they happen

	store      jobresult.Repository
	publishers []Publisher
	metrics    Metrics
	logger     Logger
	now        func() time.Time

	// inflight counts runs started by ListenMQTT.
	inflight sync.WaitGroup
}

// New creates a runner.
//
// Parameters:
//   - store: Where results are persisted; nil keeps results in memory only
//
// Returns:
//   - *Runner: with no jobs registered
func New(store jobresult.Repository) *Runner {
	return &Runner{
		jobs:      make(map[string]job.Job),
		streaming: make(map[string]bool),
		store:     store,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger. Job entries are mirrored to it (see Register).
func (r *Runner) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// currentLogger returns the logger set by SetLogger.
func (r *Runner) currentLogger() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// Wait blocks until every run started by an MQTT request has finished.
func (r *Runner) Wait() {
	r.inflight.Wait()
}

// AddPublisher adds a destination for completed results.
func (r *Runner) AddPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers = append(r.publishers, p)
}

// SetMetrics sets the run metrics recorder.
func (r *Runner) SetMetrics(m Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// SetClock overrides the source of run start and end times.
func (r *Runner) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Register adds a job under the slug of its name.
//
// Jobs that accept a sink (SetSink) get one that writes each entry to the
// runner's logger the moment it is produced; this replaces any sink set
// earlier. Entries of other jobs are logged once the job returns.
func (r *Runner) Register(j job.Job) error {
	if j == nil {
		return fmt.Errorf("%w: nil job", ErrInvalidJob)
	}
	slug := j.Meta().Slug()
	if slug == "" {
		return fmt.Errorf("%w: job name %q has no slug", ErrInvalidJob, j.Meta().Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[slug]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, slug)
	}
	r.jobs[slug] = j
	if s, ok := j.(streamer); ok {
		s.SetSink(r.logSink(slug))
		r.streaming[slug] = true
	}
	return nil
}

// logSink writes entries of the job slug to the current logger.
func (r *Runner) logSink(slug string) job.Sink {
	return job.SinkFunc(func(e job.Entry) {
		job.NewLogSink(r.currentLogger(), slug).Emit(e)
	})
}

// Jobs lists the registered jobs sorted by slug.
func (r *Runner) Jobs() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]JobInfo, 0, len(r.jobs))
	for slug, j := range r.jobs {
		infos = append(infos, describe(slug, j))
	}
	sort.Slice(infos, func(a, b int) bool {
		return infos[a].Slug < infos[b].Slug
	})
	return infos
}

// Job returns the description of one job.
func (r *Runner) Job(slug string) (JobInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[slug]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, slug)
	}
	return describe(slug, j), nil
}

func describe(slug string, j job.Job) JobInfo {
	return JobInfo{
		Slug: slug,
		Meta: j.Meta(),
		Vars: job.DescribeVars(j.Vars()),
	}
}

// Run executes a job with the submitted data and records the result.
//
// Parameters:
//   - ctx: Passed to the job and to the result store
//   - slug: Slug of a registered job, e.g. "device-lookup-job"
//   - data: Submitted variable values keyed by variable name
//
// Returns:
//   - *jobresult.Result: the completed run, also when storing it failed
//   - error: ErrJobNotFound, ErrInvalidInput (job not executed), or a store failure
func (r *Runner) Run(ctx context.Context, slug string, data map[string]any) (*jobresult.Result, error) {
	r.mu.RLock()
	j, ok := r.jobs[slug]
	streams := r.streaming[slug]
	store, publishers, metrics, logger, now := r.store, r.publishers, r.metrics, r.logger, r.now
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, slug)
	}

	values, err := job.ParseValues(j.Vars(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger.Debug("job starting", "job", slug)

	started := now()
	entries := j.Execute(ctx, values)
	completed := now()

	result := jobresult.New(slug, data, entries, started, completed)
	result.ID = jobresult.NewID()

	if !streams {
		sink := job.NewLogSink(logger, slug)
		for _, e := range result.Entries {
			sink.Emit(e)
		}
	}

	var storeErr error
	if store != nil {
		if err := store.Create(ctx, result); err != nil {
			logger.Error("storing job result failed", "job", slug, "result_id", result.ID, "error", err)
			storeErr = fmt.Errorf("storing job result: %w", err)
		}
	}

	for _, p := range publishers {
		if err := p.PublishResult(ctx, result); err != nil {
			logger.Warn("publishing job result failed", "job", slug, "result_id", result.ID, "error", err)
		}
	}

	if metrics != nil {
		metrics.RecordRun(result)
	}

	logger.Info("job finished",
		"job", slug,
		"result_id", result.ID,
		"entries", len(result.Entries),
		"errors", result.Counts[job.LevelError],
		"duration_ms", result.Duration().Milliseconds(),
	)

	return result, storeErr
}
