package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"ultraclean.dev/pkg/ultraclean/internal/domain/rules"
)

const treeSitterModule = "github.com/smacker/go-tree-sitter"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long: `Displays the build version of ultraclean, the Go version and parser used
to build it and the rule catalogs compiled into the binary.`,
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
			} else {
				cmd.Println("tool version\t", info.Main.Version)
				cmd.Println("go version\t", info.GoVersion)

				if parser := dependencyVersion(info, treeSitterModule); parser != "" {
					cmd.Println("parser\t\t", "tree-sitter", parser)
				}
			}

			for _, catalog := range []rules.Catalog{rules.AnnualSavings(), rules.ProjectData()} {
				cmd.Printf("catalog\t\t %s -> %s (%d rules)\n",
					catalog.Name, catalog.Function, len(catalog.Rules)+len(catalog.StatementRules))
			}
		},
	}
}

func dependencyVersion(info *debug.BuildInfo, path string) string {
	for _, dep := range info.Deps {
		if dep.Path == path {
			return dep.Version
		}
	}

	return ""
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
