package cmd

import (
	"github.com/spf13/cobra"

	"ultraclean.dev/pkg/ultraclean/internal/domain"
)

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <root>",
		Short: "Report duplicated and conflicting Python computations",
		Long: `Parse every Python file below root and write the duplication reports:
same target with different formulas, same formula with different targets,
same shape with different variables, function name conflicts, duplicate
function bodies, parse errors and the top 30 conflicting targets.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := workflow.Scan(cmd.Context(), domain.ScanArgs{RunOptions: runOptions(args)})
			return finish(err, summary)
		},
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
