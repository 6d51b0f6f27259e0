package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ultraclean.dev/pkg/ultraclean/internal/domain"
)

var toleranceFlag float64

// yamlCheckCmd represents the yaml-check command.
var yamlCheckCmd = newYAMLCheckCmd()

func newYAMLCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yaml-check <root>",
		Short: "Find layout coordinates that collide within a tolerance",
		Long: `Collect every mapping with x/left, y/top and an optional page/seite/p key
from the YAML files below root and group records on the same file and page
whose coordinates lie within --tol-mm of the first record of the group.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := workflow.YAMLCheck(cmd.Context(), domain.YAMLCheckArgs{
				RunOptions: runOptions(args),
				Tolerance:  viper.GetFloat64(toleranceConfigKey),
			})

			return finish(err, summary)
		},
	}

	cmd.Flags().Float64Var(&toleranceFlag, toleranceFlagName, viper.GetFloat64(toleranceConfigKey), "collision tolerance in the unit of the coordinates")
	bindFlagToConfig(cmd.Flags().Lookup(toleranceFlagName), toleranceConfigKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(yamlCheckCmd)
}
