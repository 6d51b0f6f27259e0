package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

const changePreviewLimit = 200

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplaySummary prints a single summary line.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", SummaryLine(summary))
}

// DisplaySummaries prints a table with one row per stage and a totals footer.
func (s *SimpleUI) DisplaySummaries(ctx context.Context, summaries []m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(summaries))
}

// DisplayChange prints one change the way the debug mode lists them.
func (s *SimpleUI) DisplayChange(ctx context.Context, change m.Change) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("[%s:%s] %s\n", change.File, change.Line, change.Reason)

	if change.Before != "" {
		s.printf("  BEFORE: %s\n", preview(change.Before))
	}

	if change.After != "" {
		s.printf("  AFTER:  %s\n", preview(change.After))
	}
}

// DisplayDiff prints the diff verbatim.
func (s *SimpleUI) DisplayDiff(ctx context.Context, file m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if diff == "" {
		return
	}

	s.printf("File: %s\n%s", file, diff)
}

// StartProgress does nothing; plain output only reports finished stages.
func (s *SimpleUI) StartProgress(context.Context, string, int) {}

// Advance does nothing.
func (s *SimpleUI) Advance(context.Context, string) {}

// StopProgress does nothing.
func (s *SimpleUI) StopProgress(context.Context) {}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// SummaryLine formats the console line of one stage.
func SummaryLine(s m.Summary) string {
	var b strings.Builder

	b.WriteString(stageLabel(s))
	b.WriteString(": ")

	switch s.Stage {
	case m.StageScan:
		fmt.Fprintf(&b, "%d files, %d conflict groups, %d parse errors", s.Files, s.Groups, s.Errors)
	case m.StageAutopatch:
		mode := "dry run"
		if s.Written {
			mode = "written"
		}

		fmt.Fprintf(&b, "%d of %d files changed (%s), %d skipped, %d errors", s.Changed, s.Files, mode, s.Skipped, s.Errors)
	case m.StageStructure:
		fmt.Fprintf(&b, "%d files inventoried, %d unreadable", s.Files, s.Errors)
	case m.StageYAML:
		fmt.Fprintf(&b, "%d files, %d collision groups, %d line fallbacks, %d unreadable", s.Files, s.Groups, s.Skipped, s.Errors)
	case m.StageArchive:
		fmt.Fprintf(&b, "%d reports archived", s.Files)
	default:
		fmt.Fprintf(&b, "%d files", s.Files)
	}

	if len(s.Outputs) > 0 {
		fmt.Fprintf(&b, " -> %s", s.Outputs[0])

		if len(s.Outputs) > 1 {
			fmt.Fprintf(&b, " (+%d)", len(s.Outputs)-1)
		}
	}

	return b.String()
}

func stageLabel(s m.Summary) string {
	if s.Name == "" {
		return string(s.Stage)
	}

	return string(s.Stage) + " " + s.Name
}

func renderSummaryTable(summaries []m.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Stage", "Files", "Changed", "Groups", "Errors"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	var changed, errs int

	for _, s := range summaries {
		table.Append([]string{
			stageLabel(s),
			fmt.Sprintf("%d", s.Files),
			fmt.Sprintf("%d", s.Changed),
			fmt.Sprintf("%d", s.Groups),
			fmt.Sprintf("%d", s.Errors),
		})

		changed += s.Changed
		errs += s.Errors
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d stages", len(summaries)),
		"",
		fmt.Sprintf("%d", changed),
		"",
		fmt.Sprintf("%d", errs),
	})

	table.Render()

	return tableBuffer.String()
}

func preview(text string) string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	if len(runes) > changePreviewLimit {
		return string(runes[:changePreviewLimit]) + "..."
	}

	return string(runes)
}
