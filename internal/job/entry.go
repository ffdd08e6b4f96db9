package job

import (
	"sync"
	"time"
)

// Level is the severity of a job log entry.
type Level string

// Entry levels, in the order a reader would rank them.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// AllLevels returns every entry level.
func AllLevels() []Level {
	return []Level{LevelInfo, LevelSuccess, LevelWarning, LevelError}
}

// Entry is one log line produced by a job run.
// Entries are produced in strict temporal order.
type Entry struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// String renders the entry as "[level] message".
func (e Entry) String() string {
	return "[" + string(e.Level) + "] " + e.Message
}

// Sink receives job entries in the order they are produced.
type Sink interface {
	Emit(e Entry)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(e Entry)

// Emit calls f(e).
func (f SinkFunc) Emit(e Entry) {
	f(e)
}

// MultiSink fans each entry out to every sink in order.
type MultiSink []Sink

// Emit forwards e to each non-nil sink.
func (m MultiSink) Emit(e Entry) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder is a Sink that keeps every entry it receives.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Emit appends e.
func (r *Recorder) Emit(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns how many entries of each level exist in entries.
func Count(entries []Entry) map[Level]int {
	counts := make(map[Level]int, len(AllLevels()))
	for _, l := range AllLevels() {
		counts[l] = 0
	}
	for _, e := range entries {
		counts[e.Level]++
	}
	return counts
}

// Logger is the structured logger a LogSink writes to.
// *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogSink mirrors job entries into a structured logger.
// Success entries are logged at info with level_tag=success.
type LogSink struct {
	logger Logger
	job    string
}

// NewLogSink creates a LogSink that tags every line with the job name.
func NewLogSink(logger Logger, jobName string) *LogSink {
	return &LogSink{logger: logger, job: jobName}
}

// Emit writes e to the logger at the matching severity.
func (s *LogSink) Emit(e Entry) {
	args := []any{"job", s.job, "level_tag", string(e.Level)}
	switch e.Level {
	case LevelWarning:
		s.logger.Warn(e.Message, args...)
	case LevelError:
		s.logger.Error(e.Message, args...)
	default:
		s.logger.Info(e.Message, args...)
	}
}
