// Package api implements the HTTP REST API and WebSocket event stream for nsot-jobs.
//
// This package provides:
//   - REST endpoints to list jobs, run them and read stored job results
//   - REST endpoints to list, read, add and delete devices in the registry
//   - A WebSocket hub that streams job entries and results as runs complete
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Running jobs
//
// POST /api/v1/jobs/{slug}/run takes {"data": {...}} and answers 201 with
// the stored result. Invalid variables answer 400 and the job does not run.
// A device that is not found is still a 201: the outcome is in the entries.
//
// # Events
//
// Clients connect to /api/v1/ws and subscribe to channels:
//
//	{"type": "subscribe", "id": "1", "payload": {"channels": ["job.result", "job.entry"]}}
//
// The server implements runner.Publisher through its Hub.
package api
