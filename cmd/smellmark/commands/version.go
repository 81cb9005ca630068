package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/smellmark/internal/output"
	"github.com/jmylchreest/smellmark/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			w := output.NewJSONWriter(cmd.OutOrStdout(), "  ")
			if err := w.Write(version.Get()); err != nil {
				return err
			}
			return w.Flush()
		}
		_, err := cmd.OutOrStdout().Write([]byte(version.Full() + "\n"))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "print as JSON")
}
