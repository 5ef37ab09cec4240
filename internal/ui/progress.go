// Package ui renders generation progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"symverhdr/internal/pipeline"
)

type progressModel struct {
	title      string
	events     <-chan pipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []releaseItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type releaseItem struct {
	name     string
	status   string
	fraction float64
	failed   bool
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one row per release.
func NewProgressModel(title string, releases []string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]releaseItem, 0, len(releases))
	index := make(map[string]int, len(releases))
	for i, rel := range releases {
		items = append(items, releaseItem{name: rel, status: "queued"})
		index[rel] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stageLabel = "interrupted"
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range m.items {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate("glibc "+item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	if ev.Release == "" {
		if label := runLabel(ev.Stage, ev.Status); label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx, ok := m.index[ev.Release]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.failed {
		return nil
	}
	if label := statusLabel(ev.Stage, ev.Status); label != "" {
		item.status = label
	}
	switch ev.Status {
	case pipeline.StatusError:
		item.failed = true
		item.fraction = 1
	case pipeline.StatusWorking, pipeline.StatusDone:
		item.fraction = max(item.fraction, progressFromStage(ev.Stage, ev.Status))
	}

	total := 0.0
	for _, it := range m.items {
		total += it.fraction
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

// progressFromStage weights provisioning heaviest: a cold glibc build takes
// minutes, everything after it takes milliseconds.
func progressFromStage(stage pipeline.Stage, status pipeline.Status) float64 {
	done := status == pipeline.StatusDone
	switch stage {
	case pipeline.StageProvision:
		if done {
			return 0.6
		}
		return 0.05
	case pipeline.StageExtract:
		if done {
			return 0.8
		}
		return 0.65
	case pipeline.StageSynthesize:
		return 0.9
	case pipeline.StageWrite:
		if done {
			return 1
		}
		return 0.95
	default:
		return 0
	}
}

func statusLabel(stage pipeline.Stage, status pipeline.Status) string {
	switch status {
	case pipeline.StatusQueued:
		return "queued"
	case pipeline.StatusError:
		return "error"
	case pipeline.StatusDone:
		switch stage {
		case pipeline.StageWrite:
			return "done"
		case pipeline.StageExtract:
			return "extracted"
		case pipeline.StageSynthesize:
			return "rendered"
		default:
			return ""
		}
	case pipeline.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func runLabel(stage pipeline.Stage, status pipeline.Status) string {
	switch status {
	case pipeline.StatusWorking:
		return stageLabel(stage)
	case pipeline.StatusError:
		return string(stage) + " failed"
	default:
		return ""
	}
}

func stageLabel(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageProvision:
		return "building"
	case pipeline.StageExtract:
		return "reading"
	case pipeline.StageReconcile:
		return "reconciling"
	case pipeline.StageSynthesize:
		return "rendering"
	case pipeline.StageWrite:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "building", "reading", "rendering", "writing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
