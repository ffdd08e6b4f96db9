package job

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/nsot-jobs/internal/infrastructure/config"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/logging"
)

// TestLogSink_Levels tests the mapping from entry level to log severity
func TestLogSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, config.LoggingConfig{Level: "debug", Format: "json"}, "test")
	sink := NewLogSink(logger, "Device Lookup Job")

	sink.Emit(Entry{Level: LevelInfo, Message: "starting"})
	sink.Emit(Entry{Level: LevelSuccess, Message: "found"})
	sink.Emit(Entry{Level: LevelWarning, Message: "missing"})
	sink.Emit(Entry{Level: LevelError, Message: "broken"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	want := []struct {
		slogLevel string
		tag       string
		msg       string
	}{
		{"INFO", "info", "starting"},
		{"INFO", "success", "found"},
		{"WARN", "warning", "missing"},
		{"ERROR", "error", "broken"},
	}

	for i, w := range want {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &rec))
		assert.Equal(t, w.slogLevel, rec["level"])
		assert.Equal(t, w.tag, rec["level_tag"])
		assert.Equal(t, w.msg, rec["msg"])
		assert.Equal(t, "Device Lookup Job", rec["job"])
		assert.Equal(t, "nsotjobs", rec["service"])
	}
}

// TestRecorder_Concurrent tests that Recorder is safe for concurrent emitters
func TestRecorder_Concurrent(t *testing.T) {
	rec := &Recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Emit(Entry{Level: LevelInfo, Message: "x"})
		}()
	}
	wg.Wait()

	entries := rec.Entries()
	assert.Len(t, entries, 50)

	entries[0].Message = "mutated"
	assert.Equal(t, "x", rec.Entries()[0].Message, "Entries returns a copy")
}

// TestCount tests per-level counting
func TestCount(t *testing.T) {
	counts := Count([]Entry{
		{Level: LevelInfo}, {Level: LevelSuccess}, {Level: LevelInfo}, {Level: LevelError},
	})

	assert.Equal(t, map[Level]int{
		LevelInfo:    2,
		LevelSuccess: 1,
		LevelWarning: 0,
		LevelError:   1,
	}, counts)
}

// TestEntry_String tests the plain-text rendering
func TestEntry_String(t *testing.T) {
	e := Entry{Level: LevelWarning, Message: "Device 'ghost' not found"}
	assert.Equal(t, "[warning] Device 'ghost' not found", e.String())
}
