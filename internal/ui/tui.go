// ABOUTME: TUI initialization and engine-to-UI message plumbing
// ABOUTME: Wraps bubbletea program for the practice player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/virgo-dtx/rhythm-go/pkg/beat"
	"github.com/virgo-dtx/rhythm-go/pkg/match"
	"github.com/virgo-dtx/rhythm-go/pkg/rhythm"
)

// Run starts the TUI and subscribes it to the session's best-effort
// beat and match notifications.
func Run(session *rhythm.Session) *tea.Program {
	p := tea.NewProgram(NewModel(session), tea.WithAltScreen())

	session.OnBeat(func(ev beat.Event) {
		p.Send(BeatMsg(ev))
	})
	session.OnMatch(func(res match.Result) {
		p.Send(MatchMsg(res))
	})

	return p
}
