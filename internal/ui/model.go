// ABOUTME: Bubbletea model for the practice TUI
// ABOUTME: Maps keyboard rows to drum voices and renders judgements
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/chart"
	"github.com/virgo-dtx/rhythm-go/pkg/match"
	"github.com/virgo-dtx/rhythm-go/pkg/rhythm"
)

// BeatMsg delivers a beat notification to the TUI.
type BeatMsg beat.Event

// MatchMsg delivers a classified hit to the TUI.
type MatchMsg match.Result

// voiceKeys maps keyboard keys to drum voices, roughly left to right
// across a kit.
var voiceKeys = map[string]chart.DrumVoice{
	"a": chart.HiHatClose,
	"z": chart.HiHatOpen,
	"s": chart.Snare,
	" ": chart.BassDrum,
	"d": chart.HighTom,
	"f": chart.LowTom,
	"g": chart.FloorTom,
	"j": chart.Cymbal,
	"k": chart.RideCymbal,
	"l": chart.LeftCymbal,
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	beatStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	perfectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	greatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model is the TUI state.
type Model struct {
	session *rhythm.Session

	beat  beat.Event
	last  *match.Result
	tiers [4]int

	width  int
	height int
}

// NewModel creates the initial TUI state for a session.
func NewModel(session *rhythm.Session) Model {
	return Model{session: session}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case BeatMsg:
		m.beat = beat.Event(msg)
	case MatchMsg:
		res := match.Result(msg)
		m.last = &res
		m.tiers[res.Tier]++
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.session.Stop()
		return m, tea.Quit
	case "enter":
		_ = m.session.Toggle()
		return m, nil
	case "-":
		m.adjustSpeed(-0.05)
		return m, nil
	case "=", "+":
		m.adjustSpeed(0.05)
		return m, nil
	}

	if voice, ok := voiceKeys[key]; ok {
		// Counting happens via the OnMatch notification so MIDI and
		// keyboard hits share one path; the returned result is ignored.
		_ = m.session.SubmitInput(voice, 0.8, time.Now())
	}
	return m, nil
}

func (m *Model) adjustSpeed(delta float64) {
	_ = m.session.SetSpeed(m.session.Speed() + delta)
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	tempo, configured := m.session.Tempo()
	b.WriteString(titleStyle.Render("Rhythm Practice"))
	if configured {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %.1f BPM × %.2f  [%s]",
			tempo.BPM/m.session.Speed(), m.session.Speed(), m.session.State())))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderBeatRow(tempo, configured))
	b.WriteString("\n\n")
	b.WriteString(m.renderJudgement())
	b.WriteString("\n\n")

	played, dropped := m.session.Stats()
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"perfect %d  great %d  good %d  miss %d  │  clicks %d (dropped %d)",
		m.tiers[match.TierPerfect], m.tiers[match.TierGreat],
		m.tiers[match.TierGood], m.tiers[match.TierMiss],
		played, dropped)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter:start/stop  -/=:speed  a z s space d f g j k l:drums  q:quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderBeatRow(tempo chart.Tempo, configured bool) string {
	if !configured || m.session.State() != rhythm.StateRunning {
		return dimStyle.Render("(stopped)")
	}

	per := int(tempo.TimeSignature.BeatsPerMeasure)
	cells := make([]string, 0, per)
	for i := 1; i <= per; i++ {
		cell := fmt.Sprintf(" %d ", i)
		switch {
		case uint(i) == m.beat.BeatInMeasure && m.beat.Accented:
			cell = accentStyle.Render("▶" + cell)
		case uint(i) == m.beat.BeatInMeasure:
			cell = beatStyle.Render("▶" + cell)
		default:
			cell = dimStyle.Render(" " + cell)
		}
		cells = append(cells, cell)
	}
	return strings.Join(cells, " ")
}

func (m Model) renderJudgement() string {
	if m.last == nil {
		return dimStyle.Render("hit a drum key...")
	}

	res := *m.last
	label := strings.ToUpper(res.Tier.String())

	var styled string
	switch res.Tier {
	case match.TierPerfect:
		styled = perfectStyle.Render(label)
	case match.TierGreat:
		styled = greatStyle.Render(label)
	case match.TierGood:
		styled = goodStyle.Render(label)
	default:
		styled = missStyle.Render(label)
	}

	detail := "no note in window"
	if res.Note != nil {
		detail = fmt.Sprintf("%+.1fms", res.TimingErrorMs)
	}
	return fmt.Sprintf("%s  %s  %s", styled, res.Hit.Voice, dimStyle.Render(detail))
}
