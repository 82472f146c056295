package progress

import (
	"fmt"
	"strings"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type beginMsg struct {
	total int
}

type advanceMsg struct {
	title string
	ok    bool
}

type endMsg struct{}

type stopMsg struct{}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	countStyle = lipgloss.NewStyle().Faint(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle = lipgloss.NewStyle().Faint(true)
)

type batchModel struct {
	bar       progressbar.Model
	total     int
	done      int
	failed    int
	lastTitle string
	active    bool
	quitting  bool
	width     int
}

func newBatchModel() batchModel {
	bar := progressbar.New(progressbar.WithDefaultGradient())
	return batchModel{bar: bar, width: 80}
}

func (m batchModel) Init() tea.Cmd {
	return nil
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
		if barWidth > 60 {
			barWidth = 60
		}
		m.bar.Width = barWidth
		return m, nil
	case beginMsg:
		m.total = msg.total
		m.done = 0
		m.failed = 0
		m.lastTitle = ""
		m.active = true
		return m, nil
	case advanceMsg:
		m.done++
		if !msg.ok {
			m.failed++
		}
		m.lastTitle = msg.title
		return m, nil
	case endMsg:
		m.active = false
		return m, nil
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		// Interrupts are handled by the run's signal controller, not here.
		return m, nil
	}
	return m, nil
}

func (m batchModel) View() string {
	if m.quitting || !m.active || m.total == 0 {
		return ""
	}

	frac := float64(m.done) / float64(m.total)
	counts := fmt.Sprintf("%d/%d", m.done, m.total)
	if m.failed > 0 {
		counts += failStyle.Render(fmt.Sprintf(" (%d failed)", m.failed))
	} else {
		counts = countStyle.Render(counts)
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Downloading"))
	b.WriteString(" ")
	b.WriteString(m.bar.ViewAs(frac))
	b.WriteString(" ")
	b.WriteString(counts)
	if m.lastTitle != "" {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(truncate(m.lastTitle, m.width-2)))
	}
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
