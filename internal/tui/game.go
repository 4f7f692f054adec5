package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/undersea/internal/challenge"
	"github.com/vovakirdan/undersea/internal/engine"
)

const logLines = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	hudLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	timerNormalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	timerWarningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	timerCriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	overlayStyle       = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("205")).
				Padding(1, 3)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	msgStyles = map[MessageKind]lipgloss.Style{
		MessageInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		MessageSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		MessageWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		MessageError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// rollDoneMsg reports a finished roll, including its whole effect chain.
type rollDoneMsg struct {
	result engine.RollResult
	err    error
}

// challengeView is the open challenge overlay.
type challengeView struct {
	puzzle   challenge.Puzzle
	input    textinput.Model
	reply    chan challenge.Answer
	deadline time.Time
	answered bool
}

// GameModel is the Bubble Tea model for the board screen.
type GameModel struct {
	session *engine.Session
	bridge  *PromptBridge
	log     *MessageLog
	keys    GameKeyMap
	help    help.Model

	view     engine.Snapshot
	overlay  *challengeView
	rolling  bool
	width    int
	height   int
	quitting bool
}

// NewGameModel creates the board screen over a prepared session. The bridge
// must be the one wired into the session's challenge resolver, and the log
// the one wired in as its notifier.
func NewGameModel(session *engine.Session, bridge *PromptBridge, log *MessageLog) GameModel {
	h := help.New()
	h.ShowAll = false
	return GameModel{
		session: session,
		bridge:  bridge,
		log:     log,
		keys:    DefaultGameKeyMap(),
		help:    h,
		view:    session.View(),
	}
}

// Init starts the refresh loop.
func (m GameModel) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()

	case rollDoneMsg:
		m.rolling = false
		m.view = m.session.View()
		return m, nil
	}

	return m, nil
}

func (m GameModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != nil {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		// Run cleans the session up once the program exits; doing it here
		// would block the update loop on the final score save.
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Roll):
		return m.rollOrStart()

	case key.Matches(msg, m.keys.Reset):
		if m.view.State != engine.StateIdle {
			m.session.Reset()
			m.view = m.session.View()
		}
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if m.view.PendingAdvance {
			if err := m.session.Advance(); err == nil {
				m.view = m.session.View()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Stay):
		// The advance offer stays open; nothing to do until the player
		// rolls into a new game or quits.
		return m, nil
	}

	return m, nil
}

func (m GameModel) rollOrStart() (tea.Model, tea.Cmd) {
	switch m.view.State {
	case engine.StateIdle:
		if err := m.session.Start(m.view.Level); err == nil {
			m.view = m.session.View()
		}
		return m, nil

	case engine.StateFinished:
		// A fresh game on the current level.
		if err := m.session.Start(m.view.Level); err == nil {
			m.view = m.session.View()
		}
		return m, nil

	case engine.StateActive:
		if m.rolling {
			return m, nil
		}
		m.rolling = true
		session := m.session
		return m, func() tea.Msg {
			result, err := session.Roll(context.Background())
			return rollDoneMsg{result: result, err: err}
		}
	}
	return m, nil
}

func (m GameModel) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.answerChallenge(challenge.Answer{Text: m.overlay.input.Value()})
		return m, nil

	case key.Matches(msg, m.keys.Skip):
		m.answerChallenge(challenge.Answer{Skipped: true})
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		m.answerChallenge(challenge.Answer{Skipped: true})
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.overlay.input, cmd = m.overlay.input.Update(msg)
	return m, cmd
}

func (m *GameModel) answerChallenge(a challenge.Answer) {
	if m.overlay == nil || m.overlay.answered {
		return
	}
	m.overlay.answered = true
	m.overlay.reply <- a // buffered, never blocks
	m.overlay = nil
}

func (m GameModel) handleTick() (tea.Model, tea.Cmd) {
	m.view = m.session.View()

	// Adopt a challenge waiting on the bridge.
	if m.overlay == nil {
		if req, ok := m.bridge.pending(); ok {
			input := textinput.New()
			input.Placeholder = "answer"
			input.CharLimit = 3
			input.Width = 10
			input.Focus()
			m.overlay = &challengeView{
				puzzle:   req.puzzle,
				input:    input,
				reply:    req.reply,
				deadline: req.expires,
			}
		}
	}

	// The resolver times the challenge out on its own; the overlay just
	// needs to disappear.
	if m.overlay != nil && time.Now().After(m.overlay.deadline) {
		m.overlay = nil
	}

	return m, tickCmd()
}

// View renders the board screen.
func (m GameModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("UNDERSEA"))
	b.WriteString(hudLabelStyle.Render(fmt.Sprintf("  level %d/%d", m.view.Level, m.view.MaxLevel)))
	b.WriteString("\n\n")

	b.WriteString(renderBoard(m.view.Board, m.view.Position))
	b.WriteString("\n")
	b.WriteString(m.renderHUD())
	b.WriteString("\n\n")
	b.WriteString(m.renderLog())

	if m.overlay != nil {
		b.WriteString("\n")
		b.WriteString(m.renderChallenge())
	} else if m.view.State == engine.StateFinished {
		b.WriteString("\n")
		b.WriteString(m.renderFinished())
	} else if m.view.State == engine.StateIdle {
		b.WriteString("\n")
		b.WriteString(hudLabelStyle.Render("Press space to start."))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m GameModel) renderHUD() string {
	bd := m.view.Breakdown
	score := fmt.Sprintf("score %d (carry %d + hearts %d + time %d)",
		m.view.Score, bd.Base, bd.Challenge, bd.Time)

	timer := fmt.Sprintf("%02d:%02d", m.view.TimeLeft/60, m.view.TimeLeft%60)
	switch {
	case m.view.TimeLeft <= 10:
		timer = timerCriticalStyle.Render(timer)
	case m.view.TimeLeft <= 30:
		timer = timerWarningStyle.Render(timer)
	default:
		timer = timerNormalStyle.Render(timer)
	}

	return fmt.Sprintf("%s %d   %s   %s %s",
		hudLabelStyle.Render("cell"), m.view.Position,
		score,
		hudLabelStyle.Render("time"), timer)
}

func (m GameModel) renderLog() string {
	var b strings.Builder
	for _, entry := range m.log.Tail(logLines) {
		b.WriteString(msgStyles[entry.Kind].Render(entry.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m GameModel) renderChallenge() string {
	left := max(0, int(time.Until(m.overlay.deadline).Seconds()))
	var b strings.Builder
	b.WriteString("Heart challenge! How many hearts are hidden?\n")
	b.WriteString(hudLabelStyle.Render("puzzle: "+m.overlay.puzzle.ImageURL) + "\n\n")
	b.WriteString(m.overlay.input.View())
	b.WriteString(fmt.Sprintf("\n\n%s  %ds left",
		hudLabelStyle.Render("enter to answer, esc to skip"), left))
	return overlayStyle.Render(b.String())
}

func (m GameModel) renderFinished() string {
	var b strings.Builder
	switch m.view.Outcome {
	case engine.OutcomeLevelComplete:
		b.WriteString(fmt.Sprintf("Level %d complete! Score: %d\n\n", m.view.Level, m.view.Score))
		b.WriteString("n: next level   space: replay   q: quit")
	case engine.OutcomeGameComplete:
		b.WriteString(fmt.Sprintf("All levels completed! Final score: %d\n\n", m.view.Score))
		b.WriteString("space: play again   q: quit")
	case engine.OutcomeTimeout:
		b.WriteString(fmt.Sprintf("Time's up at cell %d. Score: %d\n\n", m.view.Position, m.view.Score))
		b.WriteString("space: try again   q: quit")
	}
	return overlayStyle.Render(b.String())
}

// Run starts the board screen and blocks until it exits. The session is
// cleaned up on the way out.
func Run(session *engine.Session, bridge *PromptBridge, log *MessageLog) error {
	p := tea.NewProgram(
		NewGameModel(session, bridge, log),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	session.Cleanup()
	return err
}
