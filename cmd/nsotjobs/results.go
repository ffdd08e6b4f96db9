package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
)

var errResultsDisabled = errors.New("job results are not stored (jobs.persist_results is false)")

func newResultsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect stored job results",
	}
	cmd.AddCommand(newResultsListCommand(opts), newResultsShowCommand(opts))
	return cmd
}

func newResultsListCommand(opts *rootOptions) *cobra.Command {
	filter := jobresult.Filter{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if a.results == nil {
				return errResultsDisabled
			}

			page, err := a.results.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing job results: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tJOB\tSTARTED\tDURATION\tINFO\tSUCCESS\tWARNING\tERROR")
			for _, r := range page.Results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.JobName, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration(),
					r.Counts[job.LevelInfo], r.Counts[job.LevelSuccess], r.Counts[job.LevelWarning], r.Counts[job.LevelError])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(page.Results), page.Total)
			return err
		},
	}

	cmd.Flags().StringVar(&filter.JobName, "job", "", "only results of this job slug")
	cmd.Flags().IntVar(&filter.Limit, "limit", jobresult.DefaultLimit, "page size")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "results to skip")

	return cmd
}

func newResultsShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one job result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if a.results == nil {
				return errResultsDisabled
			}

			result, err := a.results.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting job result: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
