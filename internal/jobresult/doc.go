// Package jobresult stores the outcome of job runs in the job_results table.
//
// Each Result carries the submitted input, the ordered job entries and
// per-level counts. A result's status is always "completed" once the job
// has run; whether the run found problems is visible only in its entries.
package jobresult
