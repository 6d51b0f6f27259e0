package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	progressBarWidth  = 40
	progressItemWidth = 48
)

// advanceMsg reports one finished item.
type advanceMsg string

// finishMsg ends the progress program and clears its line.
type finishMsg struct{}

// progressModel renders "<label> <bar> done/total <item>" while a stage
// walks its files.
type progressModel struct {
	bar      progress.Model
	label    string
	current  string
	done     int
	total    int
	quitting bool
}

func newProgressModel(label string, total int) progressModel {
	return progressModel{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth), progress.WithoutPercentage()),
		label: label,
		total: total,
	}
}

func (pm progressModel) Init() tea.Cmd {
	return nil
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case advanceMsg:
		if pm.done < pm.total {
			pm.done++
		}

		pm.current = string(msg)

		return pm, nil

	case finishMsg:
		pm.quitting = true
		return pm, tea.Quit

	case tea.WindowSizeMsg:
		pm.bar.Width = min(progressBarWidth, max(msg.Width-len(pm.label)-progressItemWidth, 10))
		return pm, nil
	}

	return pm, nil
}

func (pm progressModel) percent() float64 {
	if pm.total <= 0 {
		return 1
	}

	return float64(pm.done) / float64(pm.total)
}

func (pm progressModel) View() string {
	if pm.quitting {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %d/%d", stageStyle.Render(pm.label), pm.bar.ViewAs(pm.percent()), pm.done, pm.total)

	if pm.current != "" {
		b.WriteString(" " + faintStyle.Render(truncateLeft(pm.current, progressItemWidth)))
	}

	b.WriteString("\n")

	return b.String()
}

// truncateLeft keeps the end of s, which for paths is the file name.
func truncateLeft(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}

	return "…" + string(r[len(r)-limit+1:])
}

// progressRun is one running progress program.
type progressRun struct {
	program *tea.Program
	done    chan struct{}
}

func startProgressRun(ctx context.Context, s *StyledUI, label string, total int) *progressRun {
	program := tea.NewProgram(newProgressModel(label, total),
		tea.WithContext(ctx),
		tea.WithOutput(s.cmd.OutOrStdout()),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	run := &progressRun{program: program, done: make(chan struct{})}

	go func() {
		defer close(run.done)

		_, _ = program.Run()
	}()

	return run
}

func (r *progressRun) advance(item string) {
	r.program.Send(advanceMsg(item))
}

func (r *progressRun) println(text string) {
	r.program.Println(strings.TrimSuffix(text, "\n"))
}

func (r *progressRun) stop() {
	r.program.Send(finishMsg{})
	<-r.done
}
