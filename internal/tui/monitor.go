// Package tui renders a live terminal monitor for a running simulation. The
// simulation runs in its own goroutine and publishes step updates over a
// channel; the monitor never touches simulation state directly.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// StepUpdate is one progress sample published after an accepted step.
type StepUpdate struct {
	TimeYr   float64
	TEndYr   float64
	DtYr     float64
	Steps    int
	Retries  int
	GasMass  float64 // solar masses
	DustMass float64 // solar masses

	// DustColumn is the total dust surface density per radial cell, used for
	// the profile strip.
	DustColumn []float64

	Done bool
	Err  error
}

type model struct {
	updates <-chan StepUpdate
	cancel  func()

	last      StepUpdate
	dtHistory []float64
	done      bool
	err       error

	width  int
	height int
}

// NewMonitor builds the bubbletea model. cancel is invoked when the user
// quits before the run finishes.
func NewMonitor(updates <-chan StepUpdate, cancel func()) tea.Model {
	return model{
		updates:   updates,
		cancel:    cancel,
		dtHistory: make([]float64, 0, 64),
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd { return m.wait() }

func (m model) wait() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return StepUpdate{Done: true}
		}
		return u
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "escape":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case StepUpdate:
		if msg.Err != nil {
			m.err = msg.Err
		}
		if msg.Done {
			m.done = true
			return m, nil
		}
		m.last = msg
		m.dtHistory = append(m.dtHistory, msg.DtYr)
		if len(m.dtHistory) > 64 {
			m.dtHistory = m.dtHistory[1:]
		}
		return m, m.wait()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	u := m.last

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case m.err != nil:
		statusIcon = red.Render("✗")
		statusText = red.Render("failed")
	case m.done:
		statusIcon = cyan.Render("●")
		statusText = cyan.Render("finished")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render("dustpy"), statusText))

	progress := 0.0
	if u.TEndYr > 0 {
		progress = math.Min(u.TimeYr/u.TEndYr, 1)
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	timeStr := fmt.Sprintf("%.3g/%.3g yr", u.TimeYr, u.TEndYr)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar, dim.Render(timeStr)))

	b.WriteString("   " + dim.Render("step     ") + white.Render(fmt.Sprintf("%d", u.Steps)))
	b.WriteString("   " + dim.Render("dt ") + white.Render(fmt.Sprintf("%.3g yr", u.DtYr)))
	b.WriteString("   " + dim.Render("retries ") + yellow.Render(fmt.Sprintf("%d", u.Retries)) + "\n")
	b.WriteString("   " + dim.Render("gas mass ") + white.Render(fmt.Sprintf("%.4g M☉", u.GasMass)))
	b.WriteString("   " + dim.Render("dust mass ") + white.Render(fmt.Sprintf("%.4g M☉", u.DustMass)) + "\n")

	if len(m.dtHistory) > 1 {
		b.WriteString(fmt.Sprintf("\n   %s %s\n", dim.Render("dt"), cyan.Render(sparkline(m.dtHistory, 32))))
	}
	if len(u.DustColumn) > 1 {
		logCol := make([]float64, len(u.DustColumn))
		for i, v := range u.DustColumn {
			logCol[i] = math.Log10(math.Max(v, 1e-40))
		}
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("Σd"), cyan.Render(sparkline(logCol, 48))))
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("   q quit") + "\n")
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// Run drives the monitor until the run completes or the user quits.
func Run(updates <-chan StepUpdate, cancel func()) error {
	p := tea.NewProgram(NewMonitor(updates, cancel))
	_, err := p.Run()
	return err
}
