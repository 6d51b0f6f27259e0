package cmd

import (
	"github.com/spf13/cobra"

	"ultraclean.dev/pkg/ultraclean/internal/domain"
)

// structureCmd represents the structure command.
var structureCmd = newStructureCmd()

func newStructureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "structure <root>",
		Short: "Write the file manifest, directory summary and trees",
		Long: `Inventory every file below root: size, line count, role tags derived from
the path and the content, a per-directory summary and two tree renderings
(three levels deep and full).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := workflow.Structure(cmd.Context(), domain.StructureArgs{RunOptions: runOptions(args)})
			return finish(err, summary)
		},
	}
}

func init() {
	rootCmd.AddCommand(structureCmd)
}
