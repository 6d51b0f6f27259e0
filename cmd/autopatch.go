package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ultraclean.dev/pkg/ultraclean/internal/domain"
	"ultraclean.dev/pkg/ultraclean/internal/domain/rules"
)

const autopatchLongDescription = `Rewrite assignments of %s into calls to %s and add the
missing import or definition. Without --write only the change report is
written; with --write every changed file is backed up to <file>.bak first
unless --no-backup is given.`

var annualSavingsCmd = newAutopatchCmd("autopatch-annual-savings", "Centralize annual_savings computations", rules.AnnualSavings)
var projectDataCmd = newAutopatchCmd("autopatch-project-data", "Centralize project_data construction", rules.ProjectData)

func newAutopatchCmd(use, short string, catalog func() rules.Catalog) *cobra.Command {
	c := catalog()

	cmd := &cobra.Command{
		Use:   use + " <root>",
		Short: short,
		Long:  fmt.Sprintf(autopatchLongDescription, c.Target, c.Function),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool(writeFlagName)
			noBackup, _ := cmd.Flags().GetBool(noBackupFlagName)
			debug, _ := cmd.Flags().GetBool(debugFlagName)

			summary, err := workflow.Autopatch(cmd.Context(), domain.AutopatchArgs{
				RunOptions: runOptions(args),
				Catalog:    catalog(),
				Write:      write,
				NoBackup:   noBackup,
				Debug:      debug,
			})

			return finish(err, summary)
		},
	}

	cmd.Flags().Bool(writeFlagName, false, "modify the files on disk")
	cmd.Flags().Bool(noBackupFlagName, false, "do not write .bak copies before modifying files")
	cmd.Flags().Bool(debugFlagName, false, "print every change and a unified diff per changed file")

	return cmd
}

func init() {
	rootCmd.AddCommand(annualSavingsCmd)
	rootCmd.AddCommand(projectDataCmd)
}
