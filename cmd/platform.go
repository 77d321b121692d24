package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/sxwl-client/pkg/endpoint"
)

func newHealthCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the platform job service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newEndpointFromFlags(cmd).Health(cmd.Context(), timeout)
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out["status"] == "error" {
				return fmt.Errorf("platform is unhealthy")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "request-timeout", endpoint.DefaultRequestTimeout, "Timeout for the health request")

	return cmd
}

func newPurgeQueueCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "purge-queue",
		Short: "Purge the platform job queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newEndpointFromFlags(cmd).PurgeQueue(cmd.Context(), timeout)
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out["status"] == "error" {
				return fmt.Errorf("failed to purge queue")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "request-timeout", endpoint.DefaultRequestTimeout, "Timeout for the purge request")

	return cmd
}

func newCheckCredsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-creds",
		Short: "Verify that the configured credentials are accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newEndpointFromFlags(cmd).Client()
			if err != nil {
				return err
			}
			models, err := c.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("credentials rejected by %s: %w", c.Transport().BaseURL(), err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Credentials OK for %s (%d models visible)\n", c.Transport().BaseURL(), len(models))
			return nil
		},
	}
}
