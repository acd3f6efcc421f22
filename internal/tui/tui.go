package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"cryptoguide/internal/session"
)

// Run starts the terminal chat and blocks until the user quits or ctx ends.
func Run(ctx context.Context, answerer session.Answerer) error {
	p := tea.NewProgram(New(ctx, answerer), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
