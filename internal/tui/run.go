package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robalobadob/starcipher/internal/game"
)

// Run plays sess in the terminal until the player quits. The session is
// shut down on return.
func Run(sess *game.Session) error {
	defer sess.Shutdown()

	p := tea.NewProgram(New(sess), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run terminal client: %w", err)
	}
	if m, ok := final.(Model); ok && m.snap.RevealReady {
		// leave the decoded message on screen after the alt screen closes
		fmt.Println(m.styles.Message.Render(revealed(m.sess)))
	}
	return nil
}
