package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sxwl",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				_, _ = fmt.Fprintln(out, rootCmd.Version)
				return
			}
			_, _ = fmt.Fprintf(out, "sxwl version %s\n", rootCmd.Version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", buildCommit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", buildDate)
			_, _ = fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version")

	return cmd
}
