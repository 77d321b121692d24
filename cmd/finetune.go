package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/sxwl-client/pkg/config"
	"github.com/giantswarm/sxwl-client/pkg/finetune"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

func newFinetuneCmd() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
		format  string
	)

	cmd := &cobra.Command{
		Use:   "finetune <job-file|->",
		Short: "Start a fine-tune job",
		Long: `Start a fine-tune job from a JSON, YAML or TOML job file, or from stdin
with "-". With --wait the command blocks until the job succeeded and prints
the ID of the adapter it produced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := readJobArg(cmd, args[0], format)
			if err != nil {
				return err
			}
			e := newEndpointFromFlags(cmd)

			if wait {
				summary, err := e.FinetuneSync(cmd.Context(), job, timeout)
				if err != nil {
					return fmt.Errorf("fine-tune job failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), summary)
			}

			j, err := e.Finetune(cmd.Context(), job)
			if err != nil {
				return fmt.Errorf("failed to start fine-tune job: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"job_id": j.JobID(),
				"state":  string(j.State()),
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the job succeeded and its adapter is known")
	cmd.Flags().DurationVar(&timeout, "wait-timeout", 0, "Upper bound for --wait (default 24h)")
	cmd.Flags().StringVar(&format, "format", config.FormatJSON, "Format of a job read from stdin: json, yaml or toml")

	return cmd
}

func newJobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job-status <job-id>",
		Short: "Show a fine-tune job's status and adapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			job, err := newEndpointFromFlags(cmd).Job(args[0])
			if err != nil {
				return err
			}
			status, err := job.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to query fine-tune job: %w", err)
			}

			out := map[string]string{"job_id": args[0], "status": status}
			if status == finetune.StatusSucceeded {
				if err := job.WaitUntilCompletion(ctx, poll.Options{MaxAttempts: 1}); err != nil {
					return err
				}
				adapterID, err := job.ResolveAdapterID(ctx)
				if err != nil {
					return err
				}
				out["adapter_id"] = adapterID
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newDeleteFinetuneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-finetune <job-id>",
		Short: "Delete a fine-tune job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !newEndpointFromFlags(cmd).DeleteFinetune(cmd.Context(), args[0]) {
				return fmt.Errorf("failed to delete fine-tune job %q", args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Fine-tune job %q deleted\n", args[0])
			return nil
		},
	}
}
