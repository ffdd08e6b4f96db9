package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
	"github.com/nerrad567/nsot-jobs/internal/runner"
)

type runOptions struct {
	deviceName string
	dryRun     bool
	data       map[string]string
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run JOB",
		Short: "Run a job once and print its log",
		Long: `Run a registered job once and print its entries as "[level] message".

The entries are written to stdout; structured logs go to stderr. A job that
reports an error entry still exits 0 with a note on stderr: only invalid
input or a failure to store the result is a command error.`,
		Example: `  nsotjobs run device-lookup-job --device-name core-sw-01
  nsotjobs run device-lookup-job --device-name core-sw-01 --dry-run=false
  nsotjobs run device-lookup-job --data device_name=core-sw-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := ro.values(cmd)

			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.runner.Run(cmd.Context(), args[0], data)
			if result != nil {
				out := cmd.OutOrStdout()
				for _, e := range result.Entries {
					if _, werr := fmt.Fprintln(out, e.String()); werr != nil {
						return werr
					}
				}
				reportErrors(cmd.ErrOrStderr(), result)
			}
			if errors.Is(err, runner.ErrJobNotFound) {
				return fmt.Errorf("%w (see \"nsotjobs run --help\")", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&ro.deviceName, "device-name", "", "name of the device to look up")
	cmd.Flags().BoolVar(&ro.dryRun, "dry-run", true, "report only; make no changes")
	cmd.Flags().StringToStringVar(&ro.data, "data", nil, "job variable as key=value (repeatable)")

	return cmd
}

// reportErrors writes a note to w when the run logged error entries.
func reportErrors(w io.Writer, result *jobresult.Result) {
	if !result.HasErrors() {
		return
	}
	id := result.ID
	if id == "" {
		id = "not stored"
	}
	fmt.Fprintf(w, "job %s reported %d error entries (result %s)\n", result.JobName, result.Counts[job.LevelError], id)
}

// values builds the job data. --data entries come first so the named flags
// win when both are given; only flags set on the command line are included.
func (ro *runOptions) values(cmd *cobra.Command) map[string]any {
	data := make(map[string]any, len(ro.data)+2)
	for k, v := range ro.data {
		data[k] = v
	}
	if cmd.Flags().Changed("device-name") {
		data[job.VarDeviceName] = ro.deviceName
	}
	if cmd.Flags().Changed("dry-run") {
		data[job.VarDryRun] = ro.dryRun
	}
	return data
}
