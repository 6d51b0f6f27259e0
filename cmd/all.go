package cmd

import (
	"github.com/spf13/cobra"

	"ultraclean.dev/pkg/ultraclean/internal/domain"
)

// allCmd represents the all command.
var allCmd = newAllCmd()

func newAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all <root>",
		Short: "Run structure, scan, yaml-check and both autopatches, then zip the reports",
		Long: `Run every pipeline over root in order: structure, scan, yaml-check with the
default tolerance, autopatch-annual-savings and autopatch-project-data with
--write. Finally every report is bundled into ultra_reports.zip inside the
output directory. Backups keep the content from before the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noBackup, _ := cmd.Flags().GetBool(noBackupFlagName)

			summaries, err := workflow.All(cmd.Context(), domain.AllArgs{
				RunOptions: runOptions(args),
				NoBackup:   noBackup,
			})

			return finish(err, summaries...)
		},
	}

	cmd.Flags().Bool(noBackupFlagName, false, "do not write .bak copies before modifying files")

	return cmd
}

func init() {
	rootCmd.AddCommand(allCmd)
}
