// Package tui is a terminal client for a star-catch challenge. The star
// moves across a character grid; the player steers a cursor onto it and
// presses space. Snapshots arrive from the session's own timers through a
// subscription, so the view never polls.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/starcipher/internal/cipher"
	"github.com/robalobadob/starcipher/internal/game"
)

// Grid size in cells.
const (
	Cols = 32
	Rows = 14
)

// cell is a grid coordinate.
type cell struct{ col, row int }

// snapshotMsg carries one session snapshot into Update.
type snapshotMsg game.Snapshot

// streamEndMsg reports that the subscription closed.
type streamEndMsg struct{}

// Model is the bubbletea model for one session.
type Model struct {
	sess   *game.Session
	snaps  <-chan game.Snapshot
	cancel func()
	styles Styles

	snap   game.Snapshot
	cursor cell
	ended  bool
	quit   bool
}

// New subscribes to sess and returns a model centred on the board.
func New(sess *game.Session) Model {
	snaps, cancel := sess.Subscribe(16)
	return Model{
		sess:   sess,
		snaps:  snaps,
		cancel: cancel,
		styles: DefaultStyles(),
		snap:   sess.Snapshot(),
		cursor: cell{Cols / 2, Rows / 2},
	}
}

// Init starts listening for snapshots.
func (m Model) Init() tea.Cmd {
	return m.wait()
}

// wait blocks on the next snapshot.
func (m Model) wait() tea.Cmd {
	snaps := m.snaps
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return streamEndMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update handles keys and snapshots.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = game.Snapshot(msg)
		return m, m.wait()

	case streamEndMsg:
		m.ended = true
		m.snap = m.sess.Snapshot()
		if m.snap.Closed {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c", "q", "esc":
		m.sess.Close()
		m.cancel()
		m.quit = true
		return m, tea.Quit
	case "up", "k":
		m.cursor.row = max(m.cursor.row-1, 0)
	case "down", "j":
		m.cursor.row = min(m.cursor.row+1, Rows-1)
	case "left", "h":
		m.cursor.col = max(m.cursor.col-1, 0)
	case "right", "l":
		m.cursor.col = min(m.cursor.col+1, Cols-1)
	case " ", "enter":
		if m.snap.Phase != game.PhasePlaying {
			break
		}
		// the star may have moved since the last frame; test against the live state
		live := m.sess.Snapshot()
		if m.cellOf(live.Target) == m.cursor {
			m.snap, _ = m.sess.Hit()
		} else {
			m.snap, _ = m.sess.Miss()
		}
	case "n":
		m.snap, _ = m.sess.Advance()
	case "r":
		m.snap, _ = m.sess.Restart()
	}
	return m, nil
}

// cellOf maps a field position onto the grid.
func (m Model) cellOf(p game.Point) cell {
	f := m.snap.Field
	if f.Width <= 0 || f.Height <= 0 {
		return cell{}
	}
	col := int(math.Round(p.X / f.Width * float64(Cols-1)))
	row := int(math.Round(p.Y / f.Height * float64(Rows-1)))
	return cell{min(max(col, 0), Cols-1), min(max(row, 0), Rows-1)}
}

// View renders header, board and status.
func (m Model) View() string {
	if m.quit {
		return ""
	}
	s := m.styles
	header := s.Header.Render(fmt.Sprintf("Level %s   %s   %s",
		m.snap.Text.Level, m.snap.Text.Countdown, m.snap.Text.Lives))

	if m.snap.RevealReady {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			s.Banner.Render("You caught the star! The message reads:"),
			s.Message.Render(revealed(m.sess)),
			s.Footer.Render("q quit"),
		)
	}

	parts := []string{header, s.Board.Render(m.board())}
	if m.snap.Text.Message != "" {
		parts = append(parts, s.Banner.Render(m.snap.Text.Message))
	}
	parts = append(parts, s.Footer.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) board() string {
	s := m.styles
	star := m.cellOf(m.snap.Target)
	showStar := m.snap.Phase == game.PhasePlaying || m.snap.Phase == game.PhaseWon

	var b strings.Builder
	for row := 0; row < Rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < Cols; col++ {
			here := cell{col, row}
			switch {
			case here == star && here == m.cursor && showStar:
				b.WriteString(s.OnStar.Render("*"))
			case here == star && showStar:
				b.WriteString(s.Star.Render("*"))
			case here == m.cursor:
				b.WriteString(s.Cursor.Render("+"))
			default:
				b.WriteString(s.Empty.Render("·"))
			}
		}
	}
	return b.String()
}

// revealed decodes the guarded message; empty until the win is signaled.
func revealed(sess *game.Session) string {
	if !sess.RevealReady() {
		return ""
	}
	return cipher.Reveal(sess.Input())
}

func (m Model) help() string {
	switch m.snap.Phase {
	case game.PhaseLevelComplete:
		return "n next level • q quit"
	case game.PhaseGameOver:
		return "r restart • q quit"
	case game.PhaseWon:
		return "decoding..."
	}
	return "arrows/hjkl move • space catch • q quit"
}
