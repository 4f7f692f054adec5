// Package tui provides the Bubble Tea front end for the game: the board
// screen with its challenge overlay, the leaderboard table, and SSH serving
// via Wish.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// uiRefresh is how often the screen re-reads the engine. The engine runs its
// own clock; the UI only observes it.
const uiRefresh = 100 * time.Millisecond

// TickMsg triggers a screen refresh.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(uiRefresh, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
