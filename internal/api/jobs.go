package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/nsot-jobs/internal/jobresult"
	"github.com/nerrad567/nsot-jobs/internal/runner"
)

// handleListJobs returns every registered job with its variables.
func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.runner.Jobs()
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// handleGetJob returns one job by slug.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	info, err := s.runner.Job(chi.URLParam(r, "slug"))
	if err != nil {
		writeNotFound(w, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleRunJob runs a job with the submitted data.
//
// Body: {"data": {"device_name": "core-sw-01", "dry_run": true}}. An empty
// body submits no data.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req runner.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.runner.Run(r.Context(), slug, req.Data)
	switch {
	case errors.Is(err, runner.ErrJobNotFound):
		writeNotFound(w, "job not found")
		return
	case errors.Is(err, runner.ErrInvalidInput):
		writeValidationError(w, err.Error())
		return
	case err != nil:
		s.logger.Error("job run failed", "job", slug, "error", err, "request_id", requestIDFrom(r.Context()))
		writeInternalError(w, "failed to record job result")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleListResults returns stored job results, most recent first.
//
// Query parameters:
//   - job: filter by job slug
//   - limit: page size (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeNotFound(w, "job results are not stored")
		return
	}

	q := r.URL.Query()
	filter := jobresult.Filter{JobName: q.Get("job")}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	list, err := s.results.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list job results")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetResult returns one stored job result.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeNotFound(w, "job results are not stored")
		return
	}

	result, err := s.results.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, jobresult.ErrResultNotFound) {
			writeNotFound(w, "job result not found")
			return
		}
		writeInternalError(w, "failed to get job result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
