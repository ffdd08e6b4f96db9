// Package runner hosts jobs: it registers them, validates submitted data
// against their variables, executes them and records the outcome.
//
// A run goes through these steps:
//
//  1. Resolve the job by slug (ErrJobNotFound if unknown)
//  2. Parse the submitted key/value data against the job's variables;
//     any problem is returned to the caller and the job does not execute
//  3. Execute the job and collect its entries; jobs that accept a sink
//     stream each entry to the logger as it is produced
//  4. Build a jobresult.Result, persist it, hand it to every Publisher and
//     record a run metric
//
// The job's own outcome (a device not found, an operation failing) is part
// of the entries and never surfaces as an error from Run.
//
// # Usage
//
//	r := runner.New(jobresult.NewSQLiteRepository(db.DB))
//	r.SetLogger(logger)
//	r.AddPublisher(runner.NewMQTTPublisher(mqttClient, true))
//	r.SetMetrics(runner.NewInfluxMetrics(influxClient, cfg.Site.ID))
//	if err := r.Register(job.NewDeviceLookupJob(registry, nil)); err != nil {
//	    return err
//	}
//
//	result, err := r.Run(ctx, "device-lookup-job", map[string]any{"device_name": "core-sw-01"})
//
// Runs can also be triggered over MQTT with ListenMQTT; run requests arrive
// on nsot/jobs/{slug}/run as {"data": {...}} and execute in their own
// goroutine. Wait blocks until they have finished.
package runner
