package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

var (
	stageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// StyledUI implements UI with lipgloss colors for interactive terminals and
// shows a progress bar while a stage walks its files.
type StyledUI struct {
	*SimpleUI

	mu  sync.Mutex
	run *progressRun
}

// NewStyledUI creates a new StyledUI.
func NewStyledUI(cmd *cobra.Command) *StyledUI {
	return &StyledUI{SimpleUI: NewSimpleUI(cmd)}
}

// DisplaySummary prints the summary line with the stage highlighted and a red
// marker when the stage had failures.
func (s *StyledUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	label := stageLabel(summary)
	rest := strings.TrimPrefix(SummaryLine(summary), label)

	marker := okStyle.Render("✔")
	if summary.Errors > 0 {
		marker = errorStyle.Render("✘")
	}

	s.printf("%s %s%s\n", marker, stageStyle.Render(label), rest)
}

// DisplaySummaries renders the summary table under a heading.
func (s *StyledUI) DisplaySummaries(ctx context.Context, summaries []m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s\n%s", headingStyle.Render("Summary"), renderSummaryTable(summaries))
}

// DisplayChange prints one change with the reason highlighted.
func (s *StyledUI) DisplayChange(ctx context.Context, change m.Change) {
	if err := ctx.Err(); err != nil {
		return
	}

	reason := stageStyle.Render(change.Reason)
	if change.IsFailure() {
		reason = errorStyle.Render(change.Reason)
	}

	s.printf("%s %s\n", faintStyle.Render("["+string(change.File)+":"+change.Line+"]"), reason)

	if change.Before != "" {
		s.printf("  %s %s\n", removedStyle.Render("-"), preview(change.Before))
	}

	if change.After != "" {
		s.printf("  %s %s\n", addedStyle.Render("+"), preview(change.After))
	}
}

// DisplayDiff colors added, removed and hunk header lines.
func (s *StyledUI) DisplayDiff(ctx context.Context, file m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if diff == "" {
		return
	}

	s.printf("%s\n", headingStyle.Render(string(file)))

	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}

		body := strings.TrimSuffix(line, "\n")

		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			body = faintStyle.Render(body)
		case strings.HasPrefix(body, "@@"):
			body = hunkStyle.Render(body)
		case strings.HasPrefix(body, "+"):
			body = addedStyle.Render(body)
		case strings.HasPrefix(body, "-"):
			body = removedStyle.Render(body)
		}

		s.printf("%s\n", body)
	}
}

// StartProgress replaces any running progress bar with one for a stage of
// total items.
func (s *StyledUI) StartProgress(ctx context.Context, label string, total int) {
	s.StopProgress(ctx)

	if ctx.Err() != nil || total <= 0 {
		return
	}

	s.mu.Lock()
	s.run = startProgressRun(ctx, s, label, total)
	s.mu.Unlock()
}

// Advance marks item as done.
func (s *StyledUI) Advance(_ context.Context, item string) {
	if run := s.current(); run != nil {
		run.advance(item)
	}
}

// StopProgress removes the progress bar and waits until it is cleared.
func (s *StyledUI) StopProgress(_ context.Context) {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.mu.Unlock()

	if run != nil {
		run.stop()
	}
}

func (s *StyledUI) current() *progressRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run
}

// printf prints above a running progress bar so the two do not interleave.
func (s *StyledUI) printf(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)

	if run := s.current(); run != nil {
		run.println(text)
		return
	}

	s.SimpleUI.printf("%s", text)
}
