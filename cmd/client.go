package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giantswarm/sxwl-client/pkg/config"
	"github.com/giantswarm/sxwl-client/pkg/endpoint"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

// newEndpointFromFlags creates an endpoint from the persistent flags.
// Credentials are resolved lazily, so commands that fail before reaching
// the platform never touch the credentials file.
func newEndpointFromFlags(cmd *cobra.Command, opts ...endpoint.Option) *endpoint.Endpoint {
	flags := cmd.Flags()
	apiKey, _ := flags.GetString("api-key")
	baseURL, _ := flags.GetString("base-url")
	path, _ := flags.GetString("config")
	profile, _ := flags.GetString("profile")
	timeout, _ := flags.GetDuration("timeout")
	interval, _ := flags.GetDuration("poll-interval")
	maxAttempts, _ := flags.GetInt("max-attempts")

	explicit := config.Credentials{APIKey: apiKey, BaseURL: baseURL}
	base := []endpoint.Option{
		endpoint.WithCredentialsFunc(func() (config.Credentials, error) {
			return config.Resolve(explicit, path, profile)
		}),
		endpoint.WithConfigOptions(
			config.WithTimeout(timeout),
			config.WithUserAgent("sxwl-cli/"+rootCmd.Version),
		),
		endpoint.WithPollOptions(poll.Options{MaxAttempts: maxAttempts, Interval: interval}),
	}
	return endpoint.New(endpoint.DefaultID, append(base, opts...)...)
}

// readJobArg reads a job file, or stdin when arg is "-".
func readJobArg(cmd *cobra.Command, arg, format string) (map[string]any, error) {
	if arg != "-" {
		return config.ReadJobFile(arg)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read job from stdin: %w", err)
	}
	return config.DecodeJob(data, format)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
