package jobresult

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/nsot-jobs/internal/job"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Filter controls which results to return.
type Filter struct {
	JobName string // optional: only results of this job slug
	Limit   int    // default 50, max 200
	Offset  int    // pagination offset
}

// ListResult contains a page of results.
type ListResult struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for job result persistence.
type Repository interface {
	Create(ctx context.Context, result *Result) error
	Get(ctx context.Context, id string) (*Result, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores job results in the job_results table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new job result repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// NewID returns a fresh job result ID ("jr-" + UUID).
func NewID() string {
	return "jr-" + uuid.NewString()
}

// Create inserts a result. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, result *Result) error {
	if result.ID == "" {
		result.ID = NewID()
	}
	if result.Status == "" {
		result.Status = StatusCompleted
	}

	input := result.Input
	if input == nil {
		input = map[string]any{}
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshalling job input: %w", err)
	}

	entries := result.Entries
	if entries == nil {
		entries = []job.Entry{}
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshalling job entries: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO job_results (id, job_name, status, input, entries, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.JobName, string(result.Status),
		string(inputJSON), string(entriesJSON),
		result.StartedAt.UTC().Format(timeLayout),
		result.CompletedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrResultExists
		}
		return fmt.Errorf("inserting job result: %w", err)
	}

	return nil
}

// Get retrieves a result by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Result, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, job_name, status, input, entries, started_at, completed_at
		 FROM job_results WHERE id = ?`, id)

	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("querying job result: %w", err)
	}
	return result, nil
}

// List returns results matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := ""
	var args []any
	if filter.JobName != "" {
		where = "WHERE job_name = ?"
		args = append(args, filter.JobName)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM job_results " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting job results: %w", err)
	}

	query := `SELECT id, job_name, status, input, entries, started_at, completed_at
		FROM job_results ` + where + `
		ORDER BY started_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying job results: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job result: %w", err)
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job results: %w", err)
	}

	return &ListResult{
		Results: results,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(scanner rowScanner) (*Result, error) {
	var res Result
	var status, inputJSON, entriesJSON, startedAt, completedAt string

	if err := scanner.Scan(&res.ID, &res.JobName, &status,
		&inputJSON, &entriesJSON, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	res.Status = Status(status)

	if err := json.Unmarshal([]byte(inputJSON), &res.Input); err != nil {
		return nil, fmt.Errorf("unmarshalling input: %w", err)
	}
	if err := json.Unmarshal([]byte(entriesJSON), &res.Entries); err != nil {
		return nil, fmt.Errorf("unmarshalling entries: %w", err)
	}
	if res.Entries == nil {
		res.Entries = []job.Entry{}
	}
	res.Counts = job.Count(res.Entries)

	var err error
	if res.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if res.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}

	return &res, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing job result timestamp %q: %w", s, err)
		}
	}
	return t, nil
}
