package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/nsot-jobs/internal/device"
)

// Variable names of the device lookup job.
const (
	VarDeviceName = "device_name"
	VarDryRun     = "dry_run"
)

// Messages emitted by the device lookup job.
const (
	msgStart      = "Starting device lookup for device: %s (dry run: %t)"
	msgFound      = "Found device: %s (%s)"
	msgDryRun     = "Dry run mode - no changes made"
	msgPerforming = "Performing operations..."
	msgPerformed  = "Operations completed successfully!"
	msgNotFound   = "Device '%s' not found"
	msgError      = "Error processing device: %v"
	msgCompleted  = "Device lookup job completed"
)

var errNoDevice = errors.New("lookup reported found without a device")

// Input is the typed input of one device lookup run.
type Input struct {
	DeviceName string `json:"device_name"`
	DryRun     bool   `json:"dry_run"`
}

// DeviceLookupJob resolves a device by name and reports what it found.
// When DryRun is false it also performs its Operation on the device.
//
// A DeviceLookupJob holds no per-run state; one instance may serve
// concurrent runs provided its Finder and Operation allow it.
type DeviceLookupJob struct {
	finder device.Finder
	op     Operation
	sink   Sink
	now    func() time.Time
}

// NewDeviceLookupJob creates the job.
//
// Parameters:
//   - finder: Resolves devices by exact name (usually a *device.Registry)
//   - op: Performed on the found device when not in dry-run mode; nil means NoopOperation
//
// Returns:
//   - *DeviceLookupJob: ready to run
func NewDeviceLookupJob(finder device.Finder, op Operation) *DeviceLookupJob {
	if op == nil {
		op = NoopOperation{}
	}
	return &DeviceLookupJob{
		finder: finder,
		op:     op,
		now:    time.Now,
	}
}

// SetSink sets a sink that receives each entry as it is produced.
func (j *DeviceLookupJob) SetSink(sink Sink) {
	j.sink = sink
}

// SetClock overrides the entry timestamp source.
func (j *DeviceLookupJob) SetClock(now func() time.Time) {
	j.now = now
}

// Meta describes the job.
func (j *DeviceLookupJob) Meta() Meta {
	return Meta{
		Name:        "Device Lookup Job",
		Description: "Look up a device by name and report its status",
		ReadOnly:    false,
	}
}

// Vars declares the job's inputs.
func (j *DeviceLookupJob) Vars() []Var {
	return []Var{
		StringVar{
			Name:        VarDeviceName,
			Description: "Name of the device to look up",
			Required:    true,
		},
		BooleanVar{
			Name:        VarDryRun,
			Description: "Report only; make no changes",
			Default:     true,
		},
	}
}

// Execute runs the job from parsed variable values.
func (j *DeviceLookupJob) Execute(ctx context.Context, values Values) []Entry {
	return j.Run(ctx, Input{
		DeviceName: values.String(VarDeviceName),
		DryRun:     values.Bool(VarDryRun),
	})
}

// Run performs exactly one lookup of in.DeviceName and returns the entries
// describing the outcome. The last entry is always the completion entry.
func (j *DeviceLookupJob) Run(ctx context.Context, in Input) []Entry {
	r := &run{sink: j.sink, now: j.now}

	r.log(LevelInfo, fmt.Sprintf(msgStart, in.DeviceName, in.DryRun))

	if err := j.process(ctx, r, in); err != nil {
		r.log(LevelError, fmt.Sprintf(msgError, err))
	}

	r.log(LevelInfo, msgCompleted)
	return r.entries
}

// process runs the lookup and the branch it selects. Panics raised by the
// finder or the operation are returned as errors.
func (j *DeviceLookupJob) process(ctx context.Context, r *run, in Input) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	lookup := j.finder.LookupByName(ctx, in.DeviceName)

	switch lookup.Outcome {
	case device.LookupFound:
		if lookup.Device == nil {
			return errNoDevice
		}
	case device.LookupNotFound:
		r.log(LevelWarning, fmt.Sprintf(msgNotFound, in.DeviceName))
		return nil
	case device.LookupFailed:
		if lookup.Err == nil {
			return errors.New("lookup failed")
		}
		return lookup.Err
	default:
		return fmt.Errorf("unknown lookup outcome %q", lookup.Outcome)
	}

	d := lookup.Device
	r.log(LevelSuccess, fmt.Sprintf(msgFound, d.Name, d.DeviceType))

	if in.DryRun {
		r.log(LevelInfo, msgDryRun)
		return nil
	}

	r.log(LevelInfo, msgPerforming)
	if err := j.op.Perform(ctx, d); err != nil {
		return err
	}
	r.log(LevelSuccess, msgPerformed)
	return nil
}

// run accumulates the entries of a single execution.
type run struct {
	entries []Entry
	sink    Sink
	now     func() time.Time
}

func (r *run) log(level Level, msg string) {
	e := Entry{Level: level, Message: msg, Time: r.now().UTC()}
	r.entries = append(r.entries, e)
	r.forward(e)
}

// forward hands e to the sink. A panicking sink loses that entry but the
// run carries on.
func (r *run) forward(e Entry) {
	if r.sink == nil {
		return
	}
	defer func() { _ = recover() }()
	r.sink.Emit(e)
}
