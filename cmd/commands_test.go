package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	"ultraclean.dev/pkg/ultraclean/internal/controller"
	"ultraclean.dev/pkg/ultraclean/internal/domain"
)

// runRoot executes the real root command with a workflow printing into a
// buffer. Root flags are reset afterwards since cobra keeps parsed values.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})

	original := workflow
	workflow = domain.NewWorkflow(fsAdapter, reportStore, yamlAdapter, controller.NewSimpleUI(rootCmd), loader, patcher)

	t.Cleanup(func() {
		workflow = original

		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)

		resetFlags(rootCmd)
	})

	logPath := filepath.Join(t.TempDir(), "test.log")
	rootCmd.SetArgs(append(args, "--"+logFileFlagName, logPath))

	err := rootCmd.Execute()

	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	_ = cmd.PersistentFlags().Set(strictFlagName, "false")
	_ = cmd.PersistentFlags().Set(verboseFlagName, "false")

	for _, sub := range cmd.Commands() {
		for _, name := range []string{writeFlagName, noBackupFlagName, debugFlagName} {
			if sub.Flags().Lookup(name) != nil {
				_ = sub.Flags().Set(name, "false")
			}
		}

		if sub.Flags().Lookup(toleranceFlagName) != nil {
			_ = sub.Flags().Set(toleranceFlagName, "0.2")
		}
	}
}

func writeSources(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestScanCmd(t *testing.T) {
	root, out := t.TempDir(), t.TempDir()
	writeSources(t, root, map[string]string{
		"a.py": "total = a + b\n",
		"b.py": "total = a * b\n",
	})

	output, err := runRoot(t, "scan", root, "--out", out)
	require.NoError(t, err)

	assert.Contains(t, output, "scan: 2 files, 1 conflict groups, 0 parse errors")
	assert.FileExists(t, filepath.Join(out, domain.ReportLHSConflicts))
	assert.FileExists(t, filepath.Join(out, domain.ReportTopConflicts))
}

func TestScanCmd_RequiresRoot(t *testing.T) {
	_, err := runRoot(t, "scan")
	assert.Error(t, err)
}

func TestAutopatchCmd_WriteWithStrict(t *testing.T) {
	root, out := t.TempDir(), t.TempDir()
	source := "annual_savings = annual_old_cost - annual_hp_cost\n"
	writeSources(t, root, map[string]string{
		"page.py":   source,
		"broken.py": "def broken(:\n",
	})

	output, err := runRoot(t, "autopatch-annual-savings", root, "--out", out, "--write", "--strict")
	require.ErrorIs(t, err, errPartialFailure)
	assert.Equal(t, exitPartial, exitCode(err))

	assert.Contains(t, output, "1 of 2 files changed (written)")

	backup, err := os.ReadFile(filepath.Join(root, "page.py"+adapter.BackupSuffix))
	require.NoError(t, err)
	assert.Equal(t, source, string(backup))

	patched, err := os.ReadFile(filepath.Join(root, "page.py"))
	require.NoError(t, err)
	assert.Contains(t, string(patched), "compute_annual_savings(")
	assert.FileExists(t, filepath.Join(out, domain.AutopatchReportName("annual_savings")))
}

func TestAutopatchCmd_DryRunByDefault(t *testing.T) {
	root, out := t.TempDir(), t.TempDir()
	source := "project_data = {\"a\": 1}\n"
	writeSources(t, root, map[string]string{"page.py": source})

	output, err := runRoot(t, "autopatch-project-data", root, "--out", out)
	require.NoError(t, err)

	assert.Contains(t, output, "autopatch project_data: 1 of 1 files changed (dry run)")

	content, err := os.ReadFile(filepath.Join(root, "page.py"))
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestYAMLCheckCmd_Tolerance(t *testing.T) {
	root := t.TempDir()
	writeSources(t, root, map[string]string{
		"layout.yaml": "a: {x: 1.0, y: 1.0}\nb: {x: 1.5, y: 1.5}\n",
	})

	output, err := runRoot(t, "yaml-check", root, "--out", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "0 collision groups")

	output, err = runRoot(t, "yaml-check", root, "--out", t.TempDir(), "--"+toleranceFlagName, "0.5")
	require.NoError(t, err)
	assert.Contains(t, output, "1 collision groups")
}

func TestAllCmd(t *testing.T) {
	root, out := t.TempDir(), t.TempDir()
	writeSources(t, root, map[string]string{
		"page.py": "annual_savings = annual_old_cost - annual_hp_cost\n",
	})

	output, err := runRoot(t, "all", root, "--out", out, "--"+noBackupFlagName)
	require.NoError(t, err)

	assert.Contains(t, output, "archive: ")
	assert.FileExists(t, filepath.Join(out, domain.ReportArchive))
	assert.NoFileExists(t, filepath.Join(root, "page.py"+adapter.BackupSuffix))
}
