package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/sxwl-client/pkg/config"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

var rootCmd = &cobra.Command{
	Use:   "sxwl",
	Short: "Client for the SXWL inference and fine-tuning platform",
	Long: `sxwl deploys inference services and runs fine-tune jobs on the SXWL platform,
waits for them to become usable, and chats with running services. The same
operations are exposed as MCP tools by 'sxwl serve'.

Credentials are taken from --api-key/--base-url, then SXWL_API_KEY/SXWL_BASE_URL,
then the selected profile of the credentials file (~/.sxwl/config.toml).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sxwl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newDeleteInferenceCmd())
	rootCmd.AddCommand(newFinetuneCmd())
	rootCmd.AddCommand(newJobStatusCmd())
	rootCmd.AddCommand(newDeleteFinetuneCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newPurgeQueueCmd())
	rootCmd.AddCommand(newCheckCredsCmd())

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.String("api-key", "", fmt.Sprintf("Platform API key (or set %s)", config.EnvAPIKey))
	flags.String("base-url", "", fmt.Sprintf("Platform base URL (or set %s; default %s)", config.EnvBaseURL, config.DefaultBaseURL))
	flags.String("config", "", "Credentials file (default ~/.sxwl/config.toml)")
	flags.String("profile", config.DefaultProfile, "Profile in the credentials file")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout for each platform request")
	flags.Duration("poll-interval", poll.DefaultInterval, "Interval between status checks while waiting")
	flags.Int("max-attempts", poll.DefaultMaxAttempts, "Status checks before giving up while waiting")
}
