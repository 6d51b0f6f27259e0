package controller

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

func TestProgressModel_Update(t *testing.T) {
	model := newProgressModel("scan", 2)
	assert.Nil(t, model.Init())

	next, cmd := model.Update(advanceMsg("app/a.py"))
	assert.Nil(t, cmd)

	pm := next.(progressModel)
	assert.Equal(t, 1, pm.done)
	assert.Contains(t, pm.View(), "1/2")
	assert.Contains(t, pm.View(), "app/a.py")

	for _, item := range []string{"app/b.py", "app/c.py"} {
		next, _ = pm.Update(advanceMsg(item))
		pm = next.(progressModel)
	}

	assert.Equal(t, 2, pm.done)
	assert.InDelta(t, 1.0, pm.percent(), 1e-9)

	next, cmd = pm.Update(finishMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, next.(progressModel).View())
}

func TestProgressModel_WindowSize(t *testing.T) {
	next, _ := newProgressModel("scan", 1).Update(tea.WindowSizeMsg{Width: 70, Height: 20})
	assert.Equal(t, 18, next.(progressModel).bar.Width)

	next, _ = newProgressModel("scan", 1).Update(tea.WindowSizeMsg{Width: 300, Height: 20})
	assert.Equal(t, progressBarWidth, next.(progressModel).bar.Width)
}

func TestProgressModel_EmptyStage(t *testing.T) {
	assert.InDelta(t, 1.0, newProgressModel("scan", 0).percent(), 1e-9)
}

func TestTruncateLeft(t *testing.T) {
	assert.Equal(t, "a.py", truncateLeft("a.py", 10))
	assert.Equal(t, "…/b/c.py", truncateLeft("app/deep/b/c.py", 8))
}

func TestStyledUI_ProgressLifecycle(t *testing.T) {
	cmd, buf := newBufferedCmd()
	ui := NewStyledUI(cmd)
	ctx := context.Background()

	ui.StartProgress(ctx, "autopatch annual_savings", 2)
	require.NotNil(t, ui.current())

	ui.Advance(ctx, "a.py")
	ui.Advance(ctx, "b.py")
	ui.StopProgress(ctx)
	assert.Nil(t, ui.current())

	// Stopping twice is harmless.
	ui.StopProgress(ctx)

	ui.DisplaySummary(ctx, m.Summary{Stage: m.StageScan, Files: 2})
	assert.Contains(t, buf.String(), "2 files, 0 conflict groups")
}

func TestStyledUI_ProgressSkipped(t *testing.T) {
	cmd, _ := newBufferedCmd()
	ui := NewStyledUI(cmd)

	ui.StartProgress(context.Background(), "scan", 0)
	assert.Nil(t, ui.current())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.StartProgress(ctx, "scan", 3)
	assert.Nil(t, ui.current())

	ui.Advance(ctx, "a.py")
}

func TestSimpleUI_ProgressIsSilent(t *testing.T) {
	cmd, buf := newBufferedCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()

	ui.StartProgress(ctx, "scan", 2)
	ui.Advance(ctx, "a.py")
	ui.StopProgress(ctx)

	assert.Empty(t, buf.String())
}
