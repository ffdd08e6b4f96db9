// Package influxdb records job run metrics in InfluxDB.
//
// Every job run becomes one point in the job_runs measurement, tagged with
// the job slug and site, carrying the run duration and per-level entry
// counts. Writes are non-blocking and batched per config.yaml
// (batch_size, flush_interval); asynchronous write errors are delivered to
// the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WriteJobRun(influxdb.JobRun{Job: "device-lookup-job", Site: "lab", ...})
package influxdb
