// Package job defines runnable jobs and the device lookup job.
//
// A Job declares metadata (Meta), typed inputs (Var) and an Execute method
// that turns parsed Values into an ordered list of Entry values. Jobs never
// fail to their caller: not-found, lookup errors, operation errors and
// panics are all reported as entries, and the last entry always announces
// completion.
//
// DeviceLookupJob resolves one device by exact name through a
// device.Finder. In dry-run mode (the default) it only reports; otherwise
// it performs its Operation on the device it found.
//
// Entries can be mirrored as they happen through a Sink: LogSink writes
// them to the structured logger, Recorder keeps them in memory, MultiSink
// fans out to several sinks. runner.Runner installs a logging sink on every
// registered job that has SetSink.
//
// Usage:
//
//	j := job.NewDeviceLookupJob(registry, device.NewSaveOperation(registry))
//	j.SetSink(job.NewLogSink(log, j.Meta().Name))
//	for _, e := range j.Run(ctx, job.Input{DeviceName: "core-sw-01", DryRun: true}) {
//	    fmt.Println(e)
//	}
package job
