package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to the provided root command.
// It prints detailed build info, as JSON with --json.
func AttachCobraVersionCommand(root *cobra.Command) {
	var asJSON bool

	command := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print detailed version information including build metadata, commit hash, build timestamp and Go version. Commit and build time are injected during the build or read from the VCS stamp of the binary.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), Full())

				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")

			return encoder.Encode(Get())
		},
	}

	command.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")
	root.AddCommand(command)
}
