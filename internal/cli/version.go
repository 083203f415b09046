package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/leftright"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := leftright.GetInfo()
			out := cmd.OutOrStdout()

			if rootOpts.Format == "json" {
				data, err := json.MarshalIndent(struct {
					Version   string `json:"version"`
					Algorithm string `json:"algorithm"`
				}{info.Version, info.Algorithm}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "leftright %s (%s)\n", info.Version, info.Algorithm)
			return nil
		},
	}
}
