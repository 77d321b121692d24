package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List public and user models",
		Long: `List the models available on the platform.

Listing is best effort: if the platform cannot be reached the list is empty
and the error is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models := newEndpointFromFlags(cmd).ListModels(cmd.Context())
			if asJSON {
				return printJSON(cmd.OutOrStdout(), models)
			}

			if len(models) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No models found.")
				return nil
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Available models:\n\n")
			for _, m := range models {
				_, _ = fmt.Fprintf(out, "  - %s (%s)\n", m.Name, m.ID)
				_, _ = fmt.Fprintf(out, "    Size: %d\n", m.Size)
				_, _ = fmt.Fprintf(out, "    Public: %t\n", m.IsPublic)
				if m.Category != "" {
					_, _ = fmt.Fprintf(out, "    Category: %s\n", m.Category)
				}
				_, _ = fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the models as JSON")

	return cmd
}
