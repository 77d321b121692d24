package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/sxwl-client/internal/llm"
	"github.com/giantswarm/sxwl-client/pkg/config"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

func newDeployCmd() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
		format  string
	)

	cmd := &cobra.Command{
		Use:   "deploy <job-file|->",
		Short: "Deploy an inference service",
		Long: `Deploy an inference service from a JSON, YAML or TOML job file, or from
stdin with "-". The request is sent under "input" unless the file already
has a non-empty "input" key.

Without --wait the command returns as soon as the platform accepted the
service; use 'sxwl status' to follow it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := readJobArg(cmd, args[0], format)
			if err != nil {
				return err
			}
			e := newEndpointFromFlags(cmd)

			if wait {
				summary, err := e.RunSync(cmd.Context(), job, timeout)
				if err != nil {
					return fmt.Errorf("failed to deploy inference service: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), summary)
			}

			svc, err := e.Run(cmd.Context(), job)
			if err != nil {
				return fmt.Errorf("failed to deploy inference service: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"service_name": svc.ServiceName(),
				"state":        string(svc.State()),
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the service is running")
	cmd.Flags().DurationVar(&timeout, "wait-timeout", 0, "Upper bound for --wait (default 24h)")
	cmd.Flags().StringVar(&format, "format", config.FormatJSON, "Format of a job read from stdin: json, yaml or toml")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <service-name>",
		Short: "Show an inference service's status or chat URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newEndpointFromFlags(cmd).Service(args[0])
			if err != nil {
				return err
			}
			out, err := svc.Output(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to query inference service: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newChatCmd() *cobra.Command {
	var (
		system string
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "chat <service-name> <message>",
		Short: "Send a message to a running inference service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := newEndpointFromFlags(cmd).Service(args[0])
			if err != nil {
				return err
			}
			if err := svc.WaitUntilReady(ctx, poll.Options{MaxAttempts: 1}); err != nil {
				return fmt.Errorf("inference service %s is not ready: %w", args[0], err)
			}

			var messages []llm.Message
			if system != "" {
				messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
			}
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: args[1]})

			out := cmd.OutOrStdout()
			if !stream {
				resp, err := svc.Chat(ctx, messages)
				if err != nil {
					return fmt.Errorf("chat failed: %w", err)
				}
				_, _ = fmt.Fprintln(out, resp.Content)
				return nil
			}

			sr, err := svc.ChatStream(ctx, messages)
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			defer sr.Close()
			for {
				chunk, err := sr.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("chat stream failed: %w", err)
				}
				_, _ = fmt.Fprint(out, chunk)
			}
			_, _ = fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System prompt")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the reply as it is generated")

	return cmd
}

func newDeleteInferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-inference <service-name>",
		Short: "Delete an inference service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !newEndpointFromFlags(cmd).DeleteInference(cmd.Context(), args[0]) {
				return fmt.Errorf("failed to delete inference service %q", args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Inference service %q deleted\n", args[0])
			return nil
		},
	}
}
