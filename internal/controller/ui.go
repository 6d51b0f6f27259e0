// Package controller provides output adapters for displaying scan and
// autopatch results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// UI defines the interface for reporting pipeline progress on the console.
// Implementations can use different output methods (plain text, styled, etc).
type UI interface {
	// DisplaySummary prints the one-line summary of a finished stage.
	DisplaySummary(ctx context.Context, summary m.Summary)
	// DisplaySummaries renders a table over several stages.
	DisplaySummaries(ctx context.Context, summaries []m.Summary)
	// DisplayChange prints one audit entry of a debug autopatch run.
	DisplayChange(ctx context.Context, change m.Change)
	// DisplayDiff prints a unified diff of one rewritten file.
	DisplayDiff(ctx context.Context, file m.Path, diff string)
	// StartProgress begins tracking a stage of total items.
	StartProgress(ctx context.Context, label string, total int)
	// Advance marks one item of the current stage as done.
	Advance(ctx context.Context, item string)
	// StopProgress ends tracking; it must be called before the stage summary.
	StopProgress(ctx context.Context)
}

// NewUI returns a StyledUI when output goes to a terminal and a SimpleUI
// otherwise.
func NewUI(cmd *cobra.Command, isTTY bool) UI {
	if isTTY {
		return NewStyledUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
