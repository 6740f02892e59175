package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblio/internal/report"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize biblio configuration and storage",
		Long: `Init writes a default config.yaml if none exists and creates the data
directory with empty users, books and loan history files.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return report.JSON(out, map[string]string{
					"config": a.v.ConfigFileUsed(),
					"data":   a.settings.DataDir,
				})
			}
			return a.printMessage(out, "biblio initialized\n  config: %s\n  data:   %s",
				a.v.ConfigFileUsed(), a.settings.DataDir)
		},
	}
}
